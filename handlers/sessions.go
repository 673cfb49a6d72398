// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/danielhkuo/pick-a-box/auth"
	"github.com/danielhkuo/pick-a-box/board"
	"github.com/danielhkuo/pick-a-box/middleware"
	"github.com/danielhkuo/pick-a-box/models"
)

// SessionStore keeps visitor sessions in memory. Sessions are lost on
// restart, which also forgets the per-device picked flag.
type SessionStore struct {
	sessions map[string]*board.Session
	mu       sync.RWMutex
}

// NewSessionStore creates a new session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*board.Session),
	}
}

// Get retrieves a session by token
func (s *SessionStore) Get(token string) (*board.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, exists := s.sessions[token]
	return sess, exists
}

// Set stores a session
func (s *SessionStore) Set(sess *board.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
}

// Count returns the number of sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Create makes a session with a fresh token and anonymous identity
func (s *SessionStore) Create() (*board.Session, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, err
	}
	identity, err := auth.GenerateIdentity()
	if err != nil {
		return nil, err
	}
	sess := board.NewSession(token, identity)
	s.Set(sess)
	return sess, nil
}

// lookup returns the session named by X-Session-Token, if any
func (s *SessionStore) lookup(r *http.Request) (*board.Session, bool) {
	token := r.Header.Get(middleware.HeaderSessionToken)
	if token == "" {
		return nil, false
	}
	return s.Get(token)
}

// identityOf prefers an explicit X-Identity header over the session's own
func identityOf(r *http.Request, sess *board.Session) string {
	if id := r.Header.Get(middleware.HeaderIdentity); id != "" {
		return id
	}
	if sess != nil {
		return sess.Identity
	}
	return ""
}

type SessionHandler struct {
	sessions *SessionStore
}

func NewSessionHandler(sessions *SessionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create()
	if err != nil {
		slog.Error("failed to create session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	slog.Info("session created", "identity", sess.Identity, "sessions", h.sessions.Count())

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSessionResponse{
		SessionToken: sess.Token,
		Identity:     sess.Identity,
	})
}

// requireSession writes a 401 and returns false when the request has no known session
func (s *SessionStore) requireSession(w http.ResponseWriter, r *http.Request) (*board.Session, bool) {
	sess, ok := s.lookup(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Unknown or missing session token")
		return nil, false
	}
	return sess, true
}
