// Recolibre - Document Recommendation Training Service
// Copyright 2026 Recolibre Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/recolibre/recolibre

package database

import (
	"context"
	"fmt"
)

// schemaStatements are executed in order at startup. DuckDB sequences
// back the title primary key; identifier carries the sync key used to
// locate the title's source archive in object storage.
var schemaStatements = []string{
	`CREATE SEQUENCE IF NOT EXISTS titles_id_seq START 1`,
	`CREATE TABLE IF NOT EXISTS titles (
		id            BIGINT PRIMARY KEY DEFAULT nextval('titles_id_seq'),
		identifier    VARCHAR NOT NULL UNIQUE,
		publisher     VARCHAR NOT NULL DEFAULT '',
		theme         VARCHAR NOT NULL DEFAULT '',
		name          VARCHAR NOT NULL DEFAULT '',
		complete_text VARCHAR NOT NULL DEFAULT '',
		vector_file   VARCHAR NOT NULL DEFAULT '',
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_titles_theme ON titles(theme)`,
}

// createSchema creates tables and indexes if they do not exist.
func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
