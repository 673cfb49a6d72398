// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ Store = (*SQLStore)(nil)

// SQLStore keeps documents in a single table on postgres or sqlite.
// Notifications are delivered in process only; wrap it with NATSStore to
// reach other processes.
type SQLStore struct {
	db      *sql.DB
	hub     *hub
	clock   clockwork.Clock
	writeMu sync.Mutex
}

// NewSQLStore creates the schema if needed and returns a store over db
func NewSQLStore(db *sql.DB, clock clockwork.Clock) (*SQLStore, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := CreateSchema(db); err != nil {
		return nil, classify(err)
	}
	return &SQLStore{db: db, hub: newHub(), clock: clock}, nil
}

// OpenSQLStore opens a postgres or sqlite database and wraps it in a store
func OpenSQLStore(storeType, url string, clock clockwork.Clock) (*SQLStore, error) {
	driver := "postgres"
	if storeType == "sqlite" {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// One connection keeps ":memory:" databases shared and avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, classify(err)
	}

	store, err := NewSQLStore(db, clock)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Get retrieves a document by key
func (s *SQLStore) Get(ctx context.Context, key string) (Document, error) {
	var body string
	var updatedAt int64
	doc := Document{Key: key}

	err := s.db.QueryRowContext(ctx, `
		SELECT body, version, updated_at FROM document WHERE doc_key = $1
	`, key).Scan(&body, &doc.Version, &updatedAt)

	if err == sql.ErrNoRows {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, classify(err)
	}

	doc.Body = []byte(body)
	doc.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return doc, nil
}

// Set upserts a document unconditionally
func (s *SQLStore) Set(ctx context.Context, key string, body []byte) (Document, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.clock.Now()
	doc := Document{Key: key, Body: copyBody(body), UpdatedAt: time.UnixMilli(now.UnixMilli()).UTC()}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO document (doc_key, body, version, updated_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (doc_key) DO UPDATE SET
			body = excluded.body,
			version = document.version + 1,
			updated_at = excluded.updated_at
		RETURNING version
	`, key, string(body), now.UnixMilli()).Scan(&doc.Version)

	if err != nil {
		return Document{}, classify(err)
	}

	slog.Debug("document written", "key", key, "version", doc.Version, "size", humanize.Bytes(uint64(len(body))))
	s.hub.publish(doc)
	return doc, nil
}

// CompareAndSet writes only when the stored version equals version
func (s *SQLStore) CompareAndSet(ctx context.Context, key string, body []byte, version int64) (Document, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	now := s.clock.Now()
	doc := Document{Key: key, Body: copyBody(body), UpdatedAt: time.UnixMilli(now.UnixMilli()).UTC()}

	var err error
	if version == 0 {
		// Create only if absent
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO document (doc_key, body, version, updated_at)
			VALUES ($1, $2, 1, $3)
			ON CONFLICT (doc_key) DO NOTHING
			RETURNING version
		`, key, string(body), now.UnixMilli()).Scan(&doc.Version)
	} else {
		err = s.db.QueryRowContext(ctx, `
			UPDATE document
			SET body = $1, version = version + 1, updated_at = $2
			WHERE doc_key = $3 AND version = $4
			RETURNING version
		`, string(body), now.UnixMilli(), key, version).Scan(&doc.Version)
	}

	if err == sql.ErrNoRows {
		return Document{}, fmt.Errorf("%w: key %s is not at version %d", ErrConflict, key, version)
	}
	if err != nil {
		return Document{}, classify(err)
	}

	slog.Debug("document written", "key", key, "version", doc.Version, "size", humanize.Bytes(uint64(len(body))))
	s.hub.publish(doc)
	return doc, nil
}

// Subscribe registers fn for every write made through this store
func (s *SQLStore) Subscribe(ctx context.Context, key string, fn func(Document)) (Subscription, error) {
	return s.hub.subscribe(ctx, key, fn), nil
}

// Close cancels subscriptions and closes the database
func (s *SQLStore) Close() error {
	s.hub.closeAll()
	return s.db.Close()
}

// classify maps driver errors onto the store taxonomy
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42501" {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_AUTH:
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
