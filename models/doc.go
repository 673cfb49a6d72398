// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - ClaimRequest: name
  - LoginRequest: password
  - ResetRequest: password
  - EditModeRequest: editing
  - ReorderRequest: from, to
  - SetSecretRequest: secret

# Response Types

Types for JSON responses:

  - CreateSessionResponse: session_token, identity
  - BoardResponse: boxes, round, updated_at, mode, has_picked
  - ClaimResponse: index, box_id, name, secret
  - RevealResponse: box_id, name, secret, claimed_ago, share_text, share_url
  - SessionResponse: mode
  - StreamMessage: type, data
  - ErrorResponse: error, message

# Domain Types

The board document as stored:

  - Board: boxes in display order, round, updated_at
  - Box: id, claimed, name, secret, claimant_ref, claimed_at

Box ids are stable across reorders; every operation that must follow a box
uses its id, never its index. Name is null until claimed.

# Constants

Write modes:

	WriteModeCheckAndSet = "check-and-set"
	WriteModeOverwrite   = "overwrite"

Store types:

	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"

Admin modes:

	ModeUnauthenticated = "unauthenticated"
	ModeViewing         = "viewing"
	ModeEditing         = "editing"
*/
package models
