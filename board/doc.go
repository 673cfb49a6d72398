// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package board keeps the pick-a-box raffle board in sync with a document store.

A board is an ordered list of boxes. Each box hides a secret number; a visitor
claims a box by entering a name, and only then learns the number behind it.
The whole board is persisted as one JSON document:

	{
	  "boxes": [
	    {"id": "…", "claimed": true, "name": "Alice", "secret": 4},
	    {"id": "…", "claimed": false, "name": null, "secret": 1}
	  ],
	  "round": 0,
	  "updated_at": "2025-01-01T12:00:00Z"
	}

# Synchronizer

A Synchronizer owns the cached copy of the board:

	sync := board.New(store, authenticator, board.DefaultOptions())
	b, err := sync.Initialize(ctx)

Initialize fetches the document. If none exists it seeds a board of
Options.Size boxes whose secrets are a random permutation of 1..N and
persists it. It then follows the store so remote writes (including this
process's own echoes) refresh the cache and reach Subscribe callbacks.

All checks run against the cached board before anything is written.

# Write Modes

	WriteModeCheckAndSet (default)
	    Writes are conditional on the cached version. On conflict the board
	    is re-fetched and the operation re-validated, up to MaxRetries times.
	    Two visitors racing for one box: one wins, the other gets
	    ErrAlreadyClaimed.

	WriteModeOverwrite
	    Unconditional whole-document writes. The later of two racing claims
	    replaces the earlier name while both claimants saw a secret. A failed
	    write leaves the cache ahead of the store.

# Sessions

A Session is one visitor device and is never persisted. Its admin mode moves
through:

	Unauthenticated --Login--> Viewing <--SetEditMode--> Editing
	        ^                                               |
	        +---------------------Logout--------------------+

Admin operations need Viewing or Editing; edit mode is a presentation hint.

# Claim Rules

	ClaimOncePerDevice    one claim per Session per round (default on)
	ClaimOncePerIdentity  one box per identity across the board (default off)

AdminReset clears every claim and starts a new round, which also clears the
picked flag of every session.

# Errors

Validation errors (ErrEmptyName, ErrAlreadyClaimed, ErrAuthRequired and the
rest) never reach the store. Store failures surface as ErrStoreUnavailable or
ErrPermissionDenied and are not retried.
*/
package board
