// Package metrics exposes Prometheus counters for auth reconciliation and
// board activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gosuda/teamboard/internal/domain"
)

// Collector implements auth.Recorder and board.Recorder.
type Collector struct {
	reconcile     *prometheus.CounterVec
	usersCreated  prometheus.Counter
	boardMutation *prometheus.CounterVec
}

// NewCollector registers the teamboard metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamboard_auth_reconcile_total",
			Help: "Login/signup reconciliations by action and outcome kind.",
		}, []string{"action", "outcome"}),
		usersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamboard_auth_users_created_total",
			Help: "Directory users created through signup.",
		}),
		boardMutation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamboard_board_mutations_total",
			Help: "Board mutations by event type.",
		}, []string{"type"}),
	}

	reg.MustRegister(c.reconcile, c.usersCreated, c.boardMutation)
	return c
}

// RecordReconcile counts one reconciliation. kind is empty on success.
func (c *Collector) RecordReconcile(action domain.AuthAction, kind string, isNewUser bool) {
	if kind == "" {
		kind = "success"
	}
	if action == "" {
		action = "unknown"
	}
	c.reconcile.WithLabelValues(string(action), kind).Inc()
	if isNewUser {
		c.usersCreated.Inc()
	}
}

func (c *Collector) RecordBoardMutation(eventType domain.BoardEventType) {
	c.boardMutation.WithLabelValues(string(eventType)).Inc()
}

// Handler serves the scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
