// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/pick-a-box/auth"
	"github.com/danielhkuo/pick-a-box/board"
	"github.com/danielhkuo/pick-a-box/cliparse"
	"github.com/danielhkuo/pick-a-box/docstore"
	"github.com/danielhkuo/pick-a-box/middleware"
	"github.com/danielhkuo/pick-a-box/models"
)

// TestAdminPassword is the admin password used by every test board
const TestAdminPassword = "test-admin-password"

// TestNow is the fixed start time of test clocks
var TestNow = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:               3318,
		StoreType:          models.StoreMemory,
		BoardKey:           models.DefaultBoardKey,
		BoardSize:          models.DefaultBoardSize,
		AdminPassword:      TestAdminPassword,
		WriteMode:          models.WriteModeCheckAndSet,
		ClaimOncePerDevice: true,
		AllowedOrigins:     []string{"*"},
	}
}

// SetupTestBoard starts an initialized synchronizer over a fresh memory store.
// Both are closed when the test ends.
func SetupTestBoard(t *testing.T, clock clockwork.Clock, mutate func(*board.Options)) *board.Synchronizer {
	t.Helper()

	if clock == nil {
		clock = clockwork.NewFakeClockAt(TestNow)
	}

	store := docstore.NewMemoryStore(clock)
	t.Cleanup(func() { store.Close() })

	opts := board.DefaultOptions()
	opts.Clock = clock
	opts.Rand = rand.New(rand.NewPCG(1, 2))
	if mutate != nil {
		mutate(&opts)
	}

	sync := board.New(store, auth.NewPasswordChecker(TestAdminPassword), opts)
	if _, err := sync.Initialize(context.Background()); err != nil {
		t.Fatalf("Failed to initialize board: %v", err)
	}
	t.Cleanup(sync.Close)

	return sync
}

// SessionHeaders returns request headers carrying a session token
func SessionHeaders(token string) map[string]string {
	return map[string]string{middleware.HeaderSessionToken: token}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
