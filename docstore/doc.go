// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package docstore provides versioned JSON document storage with change
notifications.

# Documents

A Document is a key, an opaque JSON body, a version and a timestamp. The
version starts at 1 and grows by exactly one per successful write, so it
doubles as an optimistic-concurrency token:

	doc, err := store.Get(ctx, "app/state")
	doc, err = store.CompareAndSet(ctx, "app/state", body, doc.Version)
	if errors.Is(err, docstore.ErrConflict) {
		// someone else wrote first; reload and try again
	}

CompareAndSet with version 0 creates the document only if it does not exist.
Set overwrites unconditionally.

# Subscriptions

	sub, err := store.Subscribe(ctx, "app/state", func(doc docstore.Document) {
		// called for every write, including this process's own
	})
	defer sub.Cancel()

Callbacks for one subscription run sequentially on their own goroutine, in
version order for the in-process backends. Cancelling the context also
cancels the subscription.

# Backends

	memory    MemoryStore, process-local
	sqlite    SQLStore over modernc.org/sqlite
	postgres  SQLStore over github.com/lib/pq
	redis     RedisStore, WATCH/MULTI for CompareAndSet, pub/sub for events

MemoryStore and SQLStore notify subscribers in the same process only. Wrap
either in a NATSStore to spread notifications across processes:

	nc, err := docstore.ConnectNATS("nats://localhost:4222")
	store = docstore.NewNATSStore(sqlStore, nc, "pickabox")

RedisStore already publishes through Redis and needs no wrapper.

# Schema

The SQL backends share one table, created by CreateSchema:

	document(doc_key TEXT PRIMARY KEY, body TEXT, version BIGINT, updated_at BIGINT)

updated_at holds Unix milliseconds so both databases store it the same way.

# Errors

	ErrNotFound          Get on a missing key
	ErrConflict          CompareAndSet version mismatch
	ErrUnavailable       backend unreachable or failing
	ErrPermissionDenied  backend refused the credentials
	ErrClosed            store already closed
*/
package docstore
