// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrConflict         = errors.New("document version conflict")
	ErrUnavailable      = errors.New("document store unavailable")
	ErrPermissionDenied = errors.New("document store permission denied")
	ErrClosed           = errors.New("document store closed")
)

// Document is one stored value. Version starts at 1 and grows by one on
// every successful write.
type Document struct {
	Key       string          `json:"key"`
	Body      json.RawMessage `json:"body"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Subscription stops delivery when cancelled. Cancel is idempotent.
type Subscription interface {
	Cancel()
}

// Store is the remote document store the board is synchronized against.
//
// Subscribers receive every successful write to their key, including writes
// made through the same Store value.
type Store interface {
	Get(ctx context.Context, key string) (Document, error)
	Set(ctx context.Context, key string, body []byte) (Document, error)
	// CompareAndSet writes only if the stored version equals version.
	// A version of 0 means the document must not exist yet.
	CompareAndSet(ctx context.Context, key string, body []byte, version int64) (Document, error)
	Subscribe(ctx context.Context, key string, fn func(Document)) (Subscription, error)
	Close() error
}

func copyBody(body []byte) json.RawMessage {
	out := make(json.RawMessage, len(body))
	copy(out, body)
	return out
}
