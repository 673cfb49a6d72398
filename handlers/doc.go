// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Pick-a-Box API.

# Handler Types

Each handler is a struct holding the board synchronizer and the session store:

  - SessionHandler: visitor session creation
  - BoardHandler: public board, claims and reveals
  - AdminHandler: login, edit mode and board management
  - StreamHandler: WebSocket push of board snapshots

Handlers are created via constructor functions:

	sessions := handlers.NewSessionStore()
	boardHandler := handlers.NewBoardHandler(sync, sessions, clock)

# Sessions

Every device starts with POST /sessions and sends the returned token in the
X-Session-Token header. Sessions live in memory only; they carry the admin
mode and the per-device picked flag. An X-Identity header overrides the
session's anonymous identity for claims.

	POST /sessions                   → CreateSession
	GET  /board                      → GetBoard (token optional)
	POST /board/boxes/{index}/claim  → Claim
	GET  /board/reveal               → Reveal

Claim and reveal answer 401 without a known session.

# Admin

Admin endpoints need a session that logged in with the admin password.
Reset asks for the password again.

	POST   /admin/login               → Login
	POST   /admin/logout              → Logout
	POST   /admin/edit-mode           → SetEditMode
	POST   /admin/shuffle             → Shuffle
	POST   /admin/boxes               → AddBox
	DELETE /admin/boxes/{index}       → RemoveBox
	PUT    /admin/boxes/{index}/secret → SetSecret
	POST   /admin/reorder             → Reorder
	POST   /admin/reset               → Reset

Admin responses include secrets; the public board and the stream never do.

# Errors

Board errors map to statuses in errors.go: validation 400, missing login 401,
bad password or store permission 403, nothing to reveal 404, claim races
409 and store outages 503. Store details are logged, never returned.

# Stream

GET /board/stream upgrades to a WebSocket and sends {"type":"board"} frames:
one snapshot on connect and another after every reconciled change. Clients
that fall behind are dropped.
*/
package handlers
