// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/pick-a-box/board"
	"github.com/danielhkuo/pick-a-box/middleware"
	"github.com/danielhkuo/pick-a-box/models"
)

const shareBaseURL = "https://wa.me/?text="

type BoardHandler struct {
	sync     *board.Synchronizer
	sessions *SessionStore
	clock    clockwork.Clock
}

func NewBoardHandler(sync *board.Synchronizer, sessions *SessionStore, clock clockwork.Clock) *BoardHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BoardHandler{
		sync:     sync,
		sessions: sessions,
		clock:    clock,
	}
}

// boardView renders the grid. Secrets stay hidden unless admin is true.
func boardView(b models.Board, admin bool) models.BoardResponse {
	views := make([]models.BoxView, len(b.Boxes))
	for i, box := range b.Boxes {
		views[i] = models.BoxView{
			Index:   i,
			ID:      box.ID,
			Claimed: box.Claimed,
			Name:    box.Name,
		}
		if admin {
			secret := box.Secret
			views[i].Secret = &secret
		}
	}
	return models.BoardResponse{
		Boxes:     views,
		Round:     b.Round,
		UpdatedAt: b.UpdatedAt,
		Mode:      models.ModeUnauthenticated,
	}
}

// sessionView adds the caller's mode and picked flag to the grid
func sessionView(b models.Board, sess *board.Session) models.BoardResponse {
	if sess == nil {
		return boardView(b, false)
	}
	view := boardView(b, sess.IsAdmin())
	view.Mode = sess.Mode().String()
	view.HasPicked = sess.HasPicked(b.Round)
	return view
}

// GetBoard handles GET /board. A session token is optional here.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := h.sync.Board()
	if err != nil {
		boardError(w, "get_board", err)
		return
	}
	sess, _ := h.sessions.lookup(r)
	middleware.JSONResponse(w, http.StatusOK, sessionView(b, sess))
}

// parseIndex reads a non-negative integer path value
func parseIndex(r *http.Request, name string) (int, error) {
	raw := r.PathValue(name)
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return index, nil
}

// Claim handles POST /board/boxes/{index}/claim
func (h *BoardHandler) Claim(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}

	index, err := parseIndex(r, "index")
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.ClaimRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	box, err := h.sync.Claim(r.Context(), sess, index, req.Name, identityOf(r, sess))
	if err != nil {
		boardError(w, "claim", err)
		return
	}

	name := ""
	if box.Name != nil {
		name = *box.Name
	}

	slog.Info("box claimed", "index", index, "box_id", box.ID, "name", name, "identity", sess.Identity)

	middleware.JSONResponse(w, http.StatusOK, models.ClaimResponse{
		Index:  index,
		BoxID:  box.ID,
		Name:   name,
		Secret: box.Secret,
	})
}

// Reveal handles GET /board/reveal for the box this session claimed
func (h *BoardHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.sessions.requireSession(w, r)
	if !ok {
		return
	}

	box, err := h.sync.Reveal(sess)
	if err != nil {
		boardError(w, "reveal", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, h.reveal(box))
}

func (h *BoardHandler) reveal(box models.Box) models.RevealResponse {
	name := ""
	if box.Name != nil {
		name = *box.Name
	}
	text := ShareText(box.Secret, name)
	resp := models.RevealResponse{
		BoxID:     box.ID,
		Name:      name,
		Secret:    box.Secret,
		ShareText: text,
		ShareURL:  shareBaseURL + url.QueryEscape(text),
	}
	if box.ClaimedAt != nil {
		resp.ClaimedAgo = humanize.RelTime(*box.ClaimedAt, h.clock.Now(), "ago", "from now")
	}
	return resp
}

// ShareText is the message offered to the claimant after a reveal
func ShareText(secret int, name string) string {
	return fmt.Sprintf("Hi, I picked my contribution number! My number is %d. (Claimed by %s)", secret, name)
}
