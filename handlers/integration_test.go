// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/pick-a-box/models"
	"github.com/danielhkuo/pick-a-box/testutil"
)

// TestFullRaffleWorkflow tests the complete end-to-end workflow:
// 1. Visitors open sessions
// 2. Admin logs in and sets a secret
// 3. Visitors claim boxes
// 4. A visitor reveals their number
// 5. Admin shuffles, claims survive
// 6. Admin resets for a new round
func TestFullRaffleWorkflow(t *testing.T) {
	env := setupHandlers(t, nil)
	sessionHandler := NewSessionHandler(env.sessions)

	// Step 1: Two visitors and an admin open sessions
	tokens := make([]string, 3)
	for i := range tokens {
		w := httptest.NewRecorder()
		sessionHandler.CreateSession(w, testutil.MakeRequest("POST", "/sessions", nil, nil))
		if w.Code != http.StatusCreated {
			t.Fatalf("Step 1 - Create session failed: %d - %s", w.Code, w.Body.String())
		}
		var resp models.CreateSessionResponse
		testutil.AssertJSON(t, w, &resp)
		tokens[i] = resp.SessionToken
	}
	alice, bob, admin := tokens[0], tokens[1], tokens[2]

	// Step 2: Admin logs in and gives box 0 a custom amount
	w := env.adminCall(t, env.admin.Login, "POST", "/admin/login",
		models.LoginRequest{Password: testutil.TestAdminPassword}, admin, -1)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 2 - Login failed: %d - %s", w.Code, w.Body.String())
	}
	w = env.adminCall(t, env.admin.SetSecret, "PUT", "/admin/boxes/0/secret",
		models.SetSecretRequest{Secret: 250}, admin, 0)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 2 - Set secret failed: %d - %s", w.Code, w.Body.String())
	}

	// Step 3: Alice takes box 0, Bob tries it too and settles for box 1
	if w := env.claim(t, alice, "0", "Alice", nil); w.Code != http.StatusOK {
		t.Fatalf("Step 3 - Alice claim failed: %d - %s", w.Code, w.Body.String())
	}
	if w := env.claim(t, bob, "0", "Bob", nil); w.Code != http.StatusConflict {
		t.Fatalf("Step 3 - Bob should not take box 0: %d - %s", w.Code, w.Body.String())
	}
	if w := env.claim(t, bob, "1", "Bob", nil); w.Code != http.StatusOK {
		t.Fatalf("Step 3 - Bob claim failed: %d - %s", w.Code, w.Body.String())
	}

	// Step 4: Alice reveals her number
	w = httptest.NewRecorder()
	env.board.Reveal(w, testutil.MakeRequest("GET", "/board/reveal", nil, testutil.SessionHeaders(alice)))
	if w.Code != http.StatusOK {
		t.Fatalf("Step 4 - Reveal failed: %d - %s", w.Code, w.Body.String())
	}
	var reveal models.RevealResponse
	testutil.AssertJSON(t, w, &reveal)
	if reveal.Secret != 250 || reveal.Name != "Alice" {
		t.Errorf("Step 4 - Unexpected reveal: %+v", reveal)
	}

	// Step 5: Shuffle keeps both claims
	w = env.adminCall(t, env.admin.Shuffle, "POST", "/admin/shuffle", nil, admin, -1)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 5 - Shuffle failed: %d - %s", w.Code, w.Body.String())
	}
	claimed := 0
	for _, box := range decodeBoardResponse(t, w).Boxes {
		if box.Claimed {
			claimed++
		}
	}
	if claimed != 2 {
		t.Errorf("Step 5 - Expected 2 claims after shuffle, got %d", claimed)
	}

	// Step 6: Reset opens a new round
	w = env.adminCall(t, env.admin.Reset, "POST", "/admin/reset",
		models.ResetRequest{Password: testutil.TestAdminPassword}, admin, -1)
	if w.Code != http.StatusOK {
		t.Fatalf("Step 6 - Reset failed: %d - %s", w.Code, w.Body.String())
	}

	view := env.getBoard(t, alice)
	if view.Round != 1 || view.HasPicked {
		t.Errorf("Step 6 - Expected a fresh round, got round=%d has_picked=%v", view.Round, view.HasPicked)
	}
	for _, box := range view.Boxes {
		if box.Claimed {
			t.Errorf("Step 6 - Box %s still claimed", box.ID)
		}
	}

	w = httptest.NewRecorder()
	env.board.Reveal(w, testutil.MakeRequest("GET", "/board/reveal", nil, testutil.SessionHeaders(alice)))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}
