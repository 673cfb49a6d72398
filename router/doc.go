// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Pick-a-Box API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(sync, stream, clock)

A nil stream leaves out the WebSocket route.

# Endpoints

Health:

	GET /health

Sessions and board (public, X-Session-Token where a session is needed):

	POST /sessions                  - Start a visitor session
	GET  /board                     - Board without secrets
	POST /board/boxes/{index}/claim - Claim a box
	GET  /board/reveal              - Own number and share link
	GET  /board/stream              - WebSocket board updates

Admin (session must log in first):

	POST   /admin/login                - Log in with the admin password
	POST   /admin/logout               - Drop admin rights
	POST   /admin/edit-mode            - Toggle edit mode
	POST   /admin/shuffle              - Deal secrets again
	POST   /admin/boxes                - Add a box
	DELETE /admin/boxes/{index}        - Remove a box
	PUT    /admin/boxes/{index}/secret - Change a secret
	POST   /admin/reorder              - Move a box
	POST   /admin/reset                - Clear all claims (password again)

# Handler Initialization

The router owns the session store and shares it between handlers:

	sessions := handlers.NewSessionStore()
	boardHandler := handlers.NewBoardHandler(sync, sessions, clock)
	adminHandler := handlers.NewAdminHandler(sync, sessions)

CORS is applied around the whole mux in main.
*/
package router
