// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/pick-a-box/handlers"
	"github.com/danielhkuo/pick-a-box/middleware"
	"github.com/danielhkuo/pick-a-box/models"
	"github.com/danielhkuo/pick-a-box/testutil"
)

func setupRouter(t *testing.T) *http.ServeMux {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testutil.TestNow)
	sync := testutil.SetupTestBoard(t, clock, nil)
	stream := handlers.NewStreamHandler(sync, handlers.DefaultStreamConfig())
	t.Cleanup(stream.Close)
	return NewRouter(sync, stream, clock)
}

func TestHealthEndpoint(t *testing.T) {
	mux := setupRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux := setupRouter(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "pick-a-box API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestRouteExistence(t *testing.T) {
	mux := setupRouter(t)

	// Test that routes respond (handler is invoked)
	// Note: most routes answer 400 or 401 without a session, which is valid handler behavior
	testCases := []struct {
		method string
		path   string
	}{
		// Health and root
		{"GET", "/health"},
		{"GET", "/"},

		// Sessions and board
		{"POST", "/sessions"},
		{"GET", "/board"},
		{"POST", "/board/boxes/0/claim"},
		{"GET", "/board/reveal"},
		{"GET", "/board/stream"},

		// Admin
		{"POST", "/admin/login"},
		{"POST", "/admin/logout"},
		{"POST", "/admin/edit-mode"},
		{"POST", "/admin/shuffle"},
		{"POST", "/admin/boxes"},
		{"DELETE", "/admin/boxes/0"},
		{"PUT", "/admin/boxes/0/secret"},
		{"POST", "/admin/reorder"},
		{"POST", "/admin/reset"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code == http.StatusMethodNotAllowed || w.Code == http.StatusNotFound {
				t.Errorf("Route %s %s returned %d, expected route handler to exist", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestSpecificMethodRouting(t *testing.T) {
	mux := setupRouter(t)

	// Test that method-specific routes are enforced
	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"POST to health endpoint", "POST", "/health", http.StatusMethodNotAllowed},
		{"GET to claim endpoint", "GET", "/board/boxes/0/claim", http.StatusMethodNotAllowed},
		{"POST to board endpoint", "POST", "/board", http.StatusMethodNotAllowed},
		{"POST to secret endpoint", "POST", "/admin/boxes/0/secret", http.StatusMethodNotAllowed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tc.expectedStatus {
				t.Errorf("Expected %d for %s %s, got %d", tc.expectedStatus, tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	mux := setupRouter(t)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/sessions", nil, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)
	var sess models.CreateSessionResponse
	testutil.AssertJSON(t, w, &sess)

	headers := map[string]string{middleware.HeaderSessionToken: sess.SessionToken}

	// {index} must reach the handler as box 3
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("POST", "/board/boxes/3/claim", models.ClaimRequest{Name: "Carol"}, headers))
	testutil.AssertStatus(t, w, http.StatusOK)

	var claim models.ClaimResponse
	testutil.AssertJSON(t, w, &claim)
	if claim.Index != 3 {
		t.Errorf("Expected index 3, got %d", claim.Index)
	}

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, testutil.MakeRequest("GET", "/board", nil, headers))
	testutil.AssertStatus(t, w, http.StatusOK)
	var view models.BoardResponse
	testutil.AssertJSON(t, w, &view)
	if !view.Boxes[3].Claimed || !view.HasPicked {
		t.Errorf("Claim through the router did not land on box 3: %+v", view.Boxes[3])
	}
}

func TestCORSWrappedRouter(t *testing.T) {
	cfg := testutil.GetTestConfig()
	handler := middleware.CORS(cfg.AllowedOrigins)(setupRouter(t))

	req := httptest.NewRequest("OPTIONS", "/board/boxes/0/claim", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "content-type,x-session-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected preflight 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected allow origin '*', got '%s'", got)
	}
}
