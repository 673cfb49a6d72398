// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/pick-a-box/board"
	"github.com/danielhkuo/pick-a-box/handlers"
	"github.com/danielhkuo/pick-a-box/middleware"
)

func NewRouter(sync *board.Synchronizer, stream *handlers.StreamHandler, clock clockwork.Clock) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	sessions := handlers.NewSessionStore()
	sessionHandler := handlers.NewSessionHandler(sessions)
	boardHandler := handlers.NewBoardHandler(sync, sessions, clock)
	adminHandler := handlers.NewAdminHandler(sync, sessions)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Sessions
	mux.HandleFunc("POST /sessions", middleware.WithLogging(sessionHandler.CreateSession))

	// Board (public)
	mux.HandleFunc("GET /board", middleware.WithLogging(boardHandler.GetBoard))
	mux.HandleFunc("POST /board/boxes/{index}/claim", middleware.WithLogging(boardHandler.Claim))
	mux.HandleFunc("GET /board/reveal", middleware.WithLogging(boardHandler.Reveal))
	if stream != nil {
		mux.HandleFunc("GET /board/stream", middleware.WithLogging(stream.ServeHTTP))
	}

	// Admin session
	mux.HandleFunc("POST /admin/login", middleware.WithLogging(adminHandler.Login))
	mux.HandleFunc("POST /admin/logout", middleware.WithLogging(adminHandler.Logout))
	mux.HandleFunc("POST /admin/edit-mode", middleware.WithLogging(adminHandler.SetEditMode))

	// Board management (admin)
	mux.HandleFunc("POST /admin/shuffle", middleware.WithLogging(adminHandler.Shuffle))
	mux.HandleFunc("POST /admin/boxes", middleware.WithLogging(adminHandler.AddBox))
	mux.HandleFunc("DELETE /admin/boxes/{index}", middleware.WithLogging(adminHandler.RemoveBox))
	mux.HandleFunc("PUT /admin/boxes/{index}/secret", middleware.WithLogging(adminHandler.SetSecret))
	mux.HandleFunc("POST /admin/reorder", middleware.WithLogging(adminHandler.Reorder))
	mux.HandleFunc("POST /admin/reset", middleware.WithLogging(adminHandler.Reset))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pick-a-box API v1"))
	})

	return mux
}
