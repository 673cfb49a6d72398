// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Default board settings
const (
	DefaultBoardSize = 6
	DefaultBoardKey  = "app/state"
)

// Write modes
const (
	WriteModeCheckAndSet = "check-and-set"
	WriteModeOverwrite   = "overwrite"
)

// Store types
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Admin modes
const (
	ModeUnauthenticated = "unauthenticated"
	ModeViewing         = "viewing"
	ModeEditing         = "editing"
)

// Domain types

// Box is one raffle slot. Field names id, claimed, name and secret are the
// persisted layout and must not change.
type Box struct {
	ID          string     `json:"id"`
	Claimed     bool       `json:"claimed"`
	Name        *string    `json:"name"`
	Secret      int        `json:"secret"`
	ClaimantRef *string    `json:"claimant_ref,omitempty"`
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`
}

// Board is the persisted document. Boxes are in display order.
type Board struct {
	Boxes     []Box     `json:"boxes"`
	Round     int       `json:"round"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate without touching the cache.
func (b Board) Clone() Board {
	out := Board{Round: b.Round, UpdatedAt: b.UpdatedAt}
	if b.Boxes == nil {
		return out
	}
	out.Boxes = make([]Box, len(b.Boxes))
	for i, box := range b.Boxes {
		out.Boxes[i] = box.clone()
	}
	return out
}

func (b Box) clone() Box {
	if b.Name != nil {
		name := *b.Name
		b.Name = &name
	}
	if b.ClaimantRef != nil {
		ref := *b.ClaimantRef
		b.ClaimantRef = &ref
	}
	if b.ClaimedAt != nil {
		at := *b.ClaimedAt
		b.ClaimedAt = &at
	}
	return b
}

// Secrets returns the secret values in display order.
func (b Board) Secrets() []int {
	secrets := make([]int, len(b.Boxes))
	for i, box := range b.Boxes {
		secrets[i] = box.Secret
	}
	return secrets
}

// Request types

type ClaimRequest struct {
	Name string `json:"name"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

type ResetRequest struct {
	Password string `json:"password"`
}

type EditModeRequest struct {
	Editing bool `json:"editing"`
}

type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type SetSecretRequest struct {
	Secret int `json:"secret"`
}

// Response types

type CreateSessionResponse struct {
	SessionToken string `json:"session_token"`
	Identity     string `json:"identity"`
}

// BoxView is a box as shown on the public grid. Secret is only set for admins.
type BoxView struct {
	Index   int     `json:"index"`
	ID      string  `json:"id"`
	Claimed bool    `json:"claimed"`
	Name    *string `json:"name"`
	Secret  *int    `json:"secret,omitempty"`
}

type BoardResponse struct {
	Boxes     []BoxView `json:"boxes"`
	Round     int       `json:"round"`
	UpdatedAt time.Time `json:"updated_at"`
	Mode      string    `json:"mode"`
	HasPicked bool      `json:"has_picked"`
}

type ClaimResponse struct {
	Index  int    `json:"index"`
	BoxID  string `json:"box_id"`
	Name   string `json:"name"`
	Secret int    `json:"secret"`
}

type RevealResponse struct {
	BoxID      string `json:"box_id"`
	Name       string `json:"name"`
	Secret     int    `json:"secret"`
	ClaimedAgo string `json:"claimed_ago,omitempty"`
	ShareText  string `json:"share_text"`
	ShareURL   string `json:"share_url"`
}

type SessionResponse struct {
	Mode string `json:"mode"`
}

// StreamMessage is a frame on the board WebSocket.
type StreamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
