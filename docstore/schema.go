// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package docstore

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates the document table.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The same statement runs on postgres and sqlite, so updated_at is stored as
// unix milliseconds rather than a dialect-specific timestamp type.
const schema = `
CREATE TABLE IF NOT EXISTS document (
    doc_key TEXT PRIMARY KEY,
    body TEXT NOT NULL,
    version BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);
`
