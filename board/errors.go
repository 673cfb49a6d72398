// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package board

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/pick-a-box/docstore"
)

var (
	ErrAuthRequired     = errors.New("admin authentication required")
	ErrInvalidPassword  = errors.New("incorrect admin password")
	ErrAlreadyClaimed   = errors.New("box already claimed")
	ErrEmptyName        = errors.New("name is required")
	ErrAlreadyPicked    = errors.New("this device has already picked a box")
	ErrIdentityRequired = errors.New("identity is required to claim")
	ErrIdentityHasClaim = errors.New("identity already holds a box")
	ErrInvalidIndex     = errors.New("box index out of range")
	ErrInvalidSecret    = errors.New("secret must be a positive number")
	ErrNothingClaimed   = errors.New("no box claimed by this session")
	ErrNotInitialized   = errors.New("board not loaded yet")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrPermissionDenied = errors.New("store rejected the request")
	ErrConflict         = errors.New("board changed concurrently, try again")
)

// storeError maps docstore failures onto the board taxonomy
func storeError(err error) error {
	switch {
	case errors.Is(err, docstore.ErrPermissionDenied):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, docstore.ErrConflict):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
