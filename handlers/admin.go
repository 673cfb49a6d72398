// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pick-a-box/board"
	"github.com/danielhkuo/pick-a-box/middleware"
	"github.com/danielhkuo/pick-a-box/models"
)

type AdminHandler struct {
	sync     *board.Synchronizer
	sessions *SessionStore
}

func NewAdminHandler(sync *board.Synchronizer, sessions *SessionStore) *AdminHandler {
	return &AdminHandler{
		sync:     sync,
		sessions: sessions,
	}
}

func sessionResponse(sess *board.Session) models.SessionResponse {
	return models.SessionResponse{Mode: sess.Mode().String()}
}

// Login handles POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}

	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.sync.Login(r.Context(), sess, req.Password); err != nil {
		slog.Warn("admin login rejected", "remote", middleware.GetClientIP(r))
		boardError(w, "login", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, sessionResponse(sess))
}

// Logout handles POST /admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}
	sess.Logout()
	middleware.JSONResponse(w, http.StatusOK, sessionResponse(sess))
}

// SetEditMode handles POST /admin/edit-mode
func (h *AdminHandler) SetEditMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}

	var req models.EditModeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := sess.SetEditMode(req.Editing); err != nil {
		boardError(w, "edit_mode", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, sessionResponse(sess))
}

// respond writes the board after an admin mutation, secrets included
func (h *AdminHandler) respond(w http.ResponseWriter, op string, sess *board.Session, b models.Board, err error) {
	if err != nil {
		boardError(w, op, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, sessionView(b, sess))
}

// Shuffle handles POST /admin/shuffle
func (h *AdminHandler) Shuffle(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}
	b, err := h.sync.AdminShuffle(r.Context(), sess)
	h.respond(w, "shuffle", sess, b, err)
}

// AddBox handles POST /admin/boxes
func (h *AdminHandler) AddBox(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}
	b, err := h.sync.AdminAddBox(r.Context(), sess)
	if err != nil {
		boardError(w, "add_box", err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, sessionView(b, sess))
}

// RemoveBox handles DELETE /admin/boxes/{index}
func (h *AdminHandler) RemoveBox(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}
	index, err := parseIndex(r, "index")
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.sync.AdminRemoveBox(r.Context(), sess, index)
	h.respond(w, "remove_box", sess, b, err)
}

// SetSecret handles PUT /admin/boxes/{index}/secret
func (h *AdminHandler) SetSecret(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}
	index, err := parseIndex(r, "index")
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.SetSecretRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	b, err := h.sync.AdminSetSecret(r.Context(), sess, index, req.Secret)
	h.respond(w, "set_secret", sess, b, err)
}

// Reorder handles POST /admin/reorder
func (h *AdminHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}

	var req models.ReorderRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	b, err := h.sync.AdminReorder(r.Context(), sess, req.From, req.To)
	h.respond(w, "reorder", sess, b, err)
}

// Reset handles POST /admin/reset. The password is checked again even for a
// logged-in session.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}

	var req models.ResetRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	b, err := h.sync.AdminReset(r.Context(), sess, req.Password)
	if err != nil {
		boardError(w, "reset", err)
		return
	}

	slog.Info("board reset via api", "round", b.Round, "remote", middleware.GetClientIP(r))
	middleware.JSONResponse(w, http.StatusOK, sessionView(b, sess))
}
