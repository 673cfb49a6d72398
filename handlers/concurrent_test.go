// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/pick-a-box/models"
)

// TestConcurrentClaimsSameBox verifies that visitors racing for one box get
// exactly one winner and everyone else a conflict
func TestConcurrentClaimsSameBox(t *testing.T) {
	env := setupHandlers(t, nil)

	numVisitors := 10
	tokens := make([]string, numVisitors)
	for i := range tokens {
		tokens[i] = env.newSession(t).Token
	}

	var okCount, conflictCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVisitors; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			w := env.claim(t, tokens[idx], "0", fmt.Sprintf("Visitor%d", idx), nil)
			switch w.Code {
			case http.StatusOK:
				okCount.Add(1)
			case http.StatusConflict:
				conflictCount.Add(1)
			default:
				t.Errorf("Visitor %d: unexpected status %d - %s", idx, w.Code, w.Body.String())
			}
		}(i)
	}
	wg.Wait()

	if okCount.Load() != 1 {
		t.Errorf("Expected exactly 1 winner, got %d", okCount.Load())
	}
	if conflictCount.Load() != int32(numVisitors-1) {
		t.Errorf("Expected %d conflicts, got %d", numVisitors-1, conflictCount.Load())
	}
}

// TestConcurrentClaimsDifferentBoxes verifies that claims on distinct boxes
// all land without losing each other
func TestConcurrentClaimsDifferentBoxes(t *testing.T) {
	env := setupHandlers(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < models.DefaultBoardSize; i++ {
		token := env.newSession(t).Token
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			w := env.claim(t, token, fmt.Sprint(idx), fmt.Sprintf("Visitor%d", idx), nil)
			if w.Code != http.StatusOK {
				t.Errorf("Visitor %d: expected 200, got %d - %s", idx, w.Code, w.Body.String())
			}
		}(i)
	}
	wg.Wait()

	b, _ := env.sync.Board()
	for i, box := range b.Boxes {
		if !box.Claimed || box.Name == nil || *box.Name != fmt.Sprintf("Visitor%d", i) {
			t.Errorf("Box %d lost its claim: %+v", i, box)
		}
	}
}
