// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/pick-a-box/board"
	"github.com/danielhkuo/pick-a-box/middleware"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{board.ErrEmptyName, http.StatusBadRequest},
	{board.ErrInvalidIndex, http.StatusBadRequest},
	{board.ErrInvalidSecret, http.StatusBadRequest},
	{board.ErrIdentityRequired, http.StatusBadRequest},
	{board.ErrAuthRequired, http.StatusUnauthorized},
	{board.ErrInvalidPassword, http.StatusForbidden},
	{board.ErrPermissionDenied, http.StatusForbidden},
	{board.ErrNothingClaimed, http.StatusNotFound},
	{board.ErrAlreadyClaimed, http.StatusConflict},
	{board.ErrAlreadyPicked, http.StatusConflict},
	{board.ErrIdentityHasClaim, http.StatusConflict},
	{board.ErrConflict, http.StatusConflict},
	{board.ErrStoreUnavailable, http.StatusServiceUnavailable},
	{board.ErrNotInitialized, http.StatusServiceUnavailable},
}

// statusFor maps a board error to its HTTP status
func statusFor(err error) (int, string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

// boardError writes err as a JSON error. Store details are logged, not returned.
func boardError(w http.ResponseWriter, op string, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError || errors.Is(err, board.ErrPermissionDenied) {
		slog.Error("board operation failed", "op", op, "error", err)
	}
	middleware.ErrorResponse(w, status, message)
}
