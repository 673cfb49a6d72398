// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Pick-a-Box API server.

Pick-a-Box is a shared raffle board: visitors claim a numbered box under
their name, see their hidden number once it is theirs, and an admin manages
the board. Every instance keeps the board in sync through a document store.

# Starting the Server

Only the admin password is required; the default store is in memory:

	ADMIN_PASSWORD=secret go run .

Or with flags and a persistent store:

	go run . -p 3318 -t sqlite -d pickabox.db -admin-password secret

A .env file in the working directory is loaded first.

# Configuration

Required settings:

  - ADMIN_PASSWORD (-admin-password): Admin login and reset password
  - STORE_URL (-d): Required unless STORE_TYPE is memory

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - STORE_TYPE (-t): memory, sqlite, postgres or redis
  - NATS_URL (-nats): Fan out board changes between instances
  - WRITE_MODE (-write-mode): check-and-set or overwrite

See the cliparse package for the full list.

# Logging

Logs go to stderr through log/slog: text on a terminal, JSON otherwise.

# Architecture

The server uses a handler-based architecture with dependency injection:

  - board: Claim synchronizer, sessions and board operations
  - docstore: Versioned document stores (memory, SQL, Redis, NATS fan-out)
  - handlers: HTTP and WebSocket handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Board document and request/response types
  - auth: Tokens and the admin password check
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
