// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/pick-a-box/board"
	"github.com/danielhkuo/pick-a-box/middleware"
	"github.com/danielhkuo/pick-a-box/models"
	"github.com/danielhkuo/pick-a-box/testutil"
)

type testEnv struct {
	sync     *board.Synchronizer
	sessions *SessionStore
	clock    *clockwork.FakeClock
	board    *BoardHandler
	admin    *AdminHandler
}

func setupHandlers(t *testing.T, mutate func(*board.Options)) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testutil.TestNow)
	sync := testutil.SetupTestBoard(t, clock, mutate)
	sessions := NewSessionStore()
	return &testEnv{
		sync:     sync,
		sessions: sessions,
		clock:    clock,
		board:    NewBoardHandler(sync, sessions, clock),
		admin:    NewAdminHandler(sync, sessions),
	}
}

func (e *testEnv) newSession(t *testing.T) *board.Session {
	t.Helper()
	sess, err := e.sessions.Create()
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	return sess
}

func (e *testEnv) loggedIn(t *testing.T) *board.Session {
	t.Helper()
	sess := e.newSession(t)
	req := testutil.MakeRequest("POST", "/admin/login",
		models.LoginRequest{Password: testutil.TestAdminPassword}, testutil.SessionHeaders(sess.Token))
	w := httptest.NewRecorder()
	e.admin.Login(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Login failed: %d - %s", w.Code, w.Body.String())
	}
	return sess
}

func TestCreateSession(t *testing.T) {
	store := NewSessionStore()
	handler := NewSessionHandler(store)

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		handler.CreateSession(w, testutil.MakeRequest("POST", "/sessions", nil, nil))
		testutil.AssertStatus(t, w, http.StatusCreated)

		var resp models.CreateSessionResponse
		testutil.AssertJSON(t, w, &resp)

		if resp.SessionToken == "" {
			t.Fatal("Expected a session token")
		}
		if !strings.HasPrefix(resp.Identity, "anon-") {
			t.Errorf("Expected anonymous identity, got %q", resp.Identity)
		}
		if seen[resp.SessionToken] {
			t.Errorf("Duplicate session token %q", resp.SessionToken)
		}
		seen[resp.SessionToken] = true

		sess, ok := store.Get(resp.SessionToken)
		if !ok {
			t.Fatal("Session was not stored")
		}
		if sess.Mode() != board.ModeUnauthenticated {
			t.Errorf("New session should be unauthenticated, got %s", sess.Mode())
		}
	}

	if store.Count() != 3 {
		t.Errorf("Expected 3 sessions, got %d", store.Count())
	}
}

func TestSessionStoreConcurrentCreate(t *testing.T) {
	store := NewSessionStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Create(); err != nil {
				t.Errorf("Create() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if store.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", store.Count())
	}
}

func TestIdentityOf(t *testing.T) {
	sess := board.NewSession("tok", "anon-1234")

	tests := []struct {
		name   string
		header string
		sess   *board.Session
		want   string
	}{
		{"session identity", "", sess, "anon-1234"},
		{"header overrides", "alice@example.com", sess, "alice@example.com"},
		{"header without session", "bob", nil, "bob"},
		{"nothing", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set(middleware.HeaderIdentity, tt.header)
			}
			if got := identityOf(req, tt.sess); got != tt.want {
				t.Errorf("identityOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireSession(t *testing.T) {
	env := setupHandlers(t, nil)
	sess := env.newSession(t)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
	}{
		{"missing token", nil, http.StatusUnauthorized},
		{"unknown token", testutil.SessionHeaders("nope"), http.StatusUnauthorized},
		{"known token", testutil.SessionHeaders(sess.Token), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.admin.Logout(w, testutil.MakeRequest("POST", "/admin/logout", nil, tt.headers))
			testutil.AssertStatus(t, w, tt.want)
		})
	}
}
