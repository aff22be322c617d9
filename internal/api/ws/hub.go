package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/teamboard/internal/board"
	"github.com/gosuda/teamboard/internal/domain"
)

// Subscriber delivers pub/sub payloads. *redis.PubSub satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Snapshotter returns the current board. *board.Store satisfies it.
type Snapshotter interface {
	ID() string
	Board() domain.Board
}

// Hub streams board events to WebSocket clients.
type Hub struct {
	subscriber Subscriber
	board      Snapshotter
}

// NewHub creates a new WebSocket hub.
func NewHub(subscriber Subscriber, b Snapshotter) *Hub {
	return &Hub{subscriber: subscriber, board: b}
}

// ServeBoard sends a "snapshot" event with the full board, then relays every
// event published on the board's channel until the client goes away.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer closes.
	ctx := conn.CloseRead(r.Context())

	// Subscribe before the snapshot so no event falls between the two.
	messages, cleanup, err := h.subscriber.Subscribe(ctx, board.Channel(h.board.ID()))
	if err != nil {
		log.Error().Err(err).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	snapshot, err := json.Marshal(domain.BoardEvent{
		Type:    domain.BoardEventSnapshot,
		BoardID: h.board.ID(),
		Data:    h.board.Board(),
	})
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "snapshot failed")
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, snapshot); err != nil {
		log.Debug().Err(err).Msg("websocket write")
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, ok := <-messages:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}
