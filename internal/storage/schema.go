// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// Schema creates the history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS histories (
    id TEXT NOT NULL UNIQUE,
    path TEXT NOT NULL,
    property TEXT NOT NULL,
    entries TEXT NOT NULL,
    entry_count INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (path, property)
);

CREATE INDEX IF NOT EXISTS idx_histories_updated_at ON histories(updated_at);

CREATE TABLE IF NOT EXISTS outputs (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    property TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outputs_key ON outputs(path, property);
`

// InitMetadata records the schema version on first open.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
