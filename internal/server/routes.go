package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/teamboard/internal/api/v1"
	"github.com/gosuda/teamboard/internal/api/ws"
	"github.com/gosuda/teamboard/internal/auth"
	"github.com/gosuda/teamboard/internal/board"
)

func registerAuthRoutes(api huma.API, reconciler v1.Reconciler, verifier *auth.SessionVerifier) {
	v1.RegisterAuthRoutes(api, reconciler, verifier)
}

func registerBoardRoutes(api huma.API, store *board.Store) {
	v1.RegisterBoardRoutes(api, store)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/board", hub.ServeBoard)
}
