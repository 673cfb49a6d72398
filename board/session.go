// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package board

import (
	"sync"

	"github.com/danielhkuo/pick-a-box/models"
)

// Mode is the admin state of a session
type Mode int

const (
	ModeUnauthenticated Mode = iota
	ModeViewing
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeViewing:
		return models.ModeViewing
	case ModeEditing:
		return models.ModeEditing
	default:
		return models.ModeUnauthenticated
	}
}

// Session is one visitor device. It is never persisted.
type Session struct {
	Token    string
	Identity string

	mu           sync.Mutex
	mode         Mode
	picked       bool
	pickedRound  int
	claimedBoxID string
}

func NewSession(token, identity string) *Session {
	return &Session{Token: token, Identity: identity}
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) IsAdmin() bool {
	return s.Mode() != ModeUnauthenticated
}

// SetEditMode switches an authenticated session between viewing and editing
func (s *Session) SetEditMode(editing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeUnauthenticated {
		return ErrAuthRequired
	}
	if editing {
		s.mode = ModeEditing
	} else {
		s.mode = ModeViewing
	}
	return nil
}

// Logout drops admin rights and leaves edit mode
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeUnauthenticated
}

func (s *Session) login() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeUnauthenticated {
		s.mode = ModeViewing
	}
}

// HasPicked reports whether this device claimed a box in the given round.
// A reset starts a new round, which clears the flag on every device.
func (s *Session) HasPicked(round int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.picked && s.pickedRound == round
}

func (s *Session) markPicked(round int, boxID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picked = true
	s.pickedRound = round
	s.claimedBoxID = boxID
}

func (s *Session) clearPick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.picked = false
	s.claimedBoxID = ""
}

func (s *Session) claim() (boxID string, round int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimedBoxID, s.pickedRound, s.picked && s.claimedBoxID != ""
}
