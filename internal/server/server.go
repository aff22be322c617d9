package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/teamboard/internal/api/v1"
	"github.com/gosuda/teamboard/internal/api/ws"
	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/board"
	"github.com/gosuda/teamboard/internal/config"
	"github.com/gosuda/teamboard/internal/mcpboard"
	"github.com/gosuda/teamboard/internal/metrics"
	"github.com/gosuda/teamboard/internal/server/middleware"
	redisstore "github.com/gosuda/teamboard/internal/store/redis"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Reconciler v1.Reconciler
	Verifier   *auth.SessionVerifier
	Board      *board.Store
	// Events may be nil; the board event stream is then not served.
	Events  *redisstore.PubSub
	Metrics prometheus.Gatherer
	Version string
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	events     *redisstore.PubSub
	cfg        *config.Config
}

// New creates a Server with all routes wired. ctx bounds background work
// such as the rate limiter sweeper.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		events: deps.Events,
		cfg:    cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Auth relay: unauthenticated at the router (the handlers check the
	// bearer themselves so they can answer in the relay's error format),
	// rate limited per client IP.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst))

		authConfig := apiConfig("Teamboard Auth Relay", deps.Version, "/api/auth", cfg.Server.Docs)
		authAPI := humachi.New(r, authConfig)
		registerAuthRoutes(authAPI, deps.Reconciler, deps.Verifier)
	})

	// Board API and tools: session required.
	router.Group(func(r chi.Router) {
		r.Use(middleware.Session(deps.Verifier))

		boardConfig := apiConfig("Teamboard Board API", deps.Version, "/api/board", cfg.Server.Docs)
		boardAPI := humachi.New(r, boardConfig)
		registerBoardRoutes(boardAPI, deps.Board)

		r.Handle("/mcp", mcpboard.New(deps.Board, deps.Version).Handler())

		if deps.Events != nil {
			r.Route("/ws", func(r chi.Router) {
				registerWSRoutes(r, ws.NewHub(deps.Events, deps.Board))
			})
		} else {
			log.Info().Msg("board event stream disabled (no redis configured)")
		}
	})

	// Health check (unauthenticated).
	router.Get("/healthz", s.healthz)

	if deps.Metrics != nil {
		router.Handle("/metrics", metrics.Handler(deps.Metrics))
	}

	// Serve the web client on all unmatched routes. This must be the last
	// route registered so API/WS routes take priority.
	if cfg.Server.WebDir != "" {
		router.NotFound(spaFileServer(os.DirFS(cfg.Server.WebDir)).ServeHTTP)
		log.Info().Str("dir", cfg.Server.WebDir).Msg("serving web client")
	}

	return s
}

// apiConfig builds a huma config whose document routes live under prefix so
// several APIs can share one router. docs=false disables them.
func apiConfig(title, version, prefix string, docs bool) huma.Config {
	c := huma.DefaultConfig(title, version)
	if docs {
		c.OpenAPIPath = prefix + "/openapi"
		c.DocsPath = prefix + "/docs"
		c.SchemasPath = prefix + "/schemas"
	} else {
		c.OpenAPIPath = ""
		c.DocsPath = ""
		c.SchemasPath = ""
	}
	return c
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.events != nil {
		if err := s.events.Ping(r.Context()); err != nil {
			log.Warn().Err(err).Msg("healthz: redis unreachable")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
