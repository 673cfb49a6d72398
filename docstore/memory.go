// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps documents in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]Document
	hub    *hub
	clock  clockwork.Clock
	closed bool
}

// NewMemoryStore creates an empty store. A nil clock uses the real clock.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		docs:  make(map[string]Document),
		hub:   newHub(),
		clock: clock,
	}
}

// Get retrieves a document by key
func (s *MemoryStore) Get(ctx context.Context, key string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Document{}, ErrClosed
	}
	doc, ok := s.docs[key]
	if !ok {
		return Document{}, ErrNotFound
	}
	doc.Body = copyBody(doc.Body)
	return doc, nil
}

// Set stores a document unconditionally
func (s *MemoryStore) Set(ctx context.Context, key string, body []byte) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Document{}, ErrClosed
	}
	return s.write(key, body), nil
}

// CompareAndSet stores a document if its version still matches
func (s *MemoryStore) CompareAndSet(ctx context.Context, key string, body []byte, version int64) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Document{}, ErrClosed
	}
	current := s.docs[key].Version
	if current != version {
		return Document{}, fmt.Errorf("%w: have %d, want %d", ErrConflict, current, version)
	}
	return s.write(key, body), nil
}

// write must be called with mu held. Publishing under the lock keeps
// subscriber queues in version order.
func (s *MemoryStore) write(key string, body []byte) Document {
	doc := Document{
		Key:       key,
		Body:      copyBody(body),
		Version:   s.docs[key].Version + 1,
		UpdatedAt: s.clock.Now(),
	}
	s.docs[key] = doc

	out := doc
	out.Body = copyBody(doc.Body)
	s.hub.publish(out)
	return out
}

// Subscribe registers fn for every write to key
func (s *MemoryStore) Subscribe(ctx context.Context, key string, fn func(Document)) (Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.hub.subscribe(ctx, key, fn), nil
}

// Close cancels all subscriptions. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.closeAll()
	return nil
}
