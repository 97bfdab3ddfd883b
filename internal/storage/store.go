// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/quill-tui/internal/history"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when no history exists for a key.
	ErrNotFound = errors.New("history not found")

	// ErrInvalidKey is returned for keys without a path.
	ErrInvalidKey = errors.New("invalid history key: path required")
)

// =============================================================================
// TYPES
// =============================================================================

// Key identifies the content field a history belongs to.
type Key struct {
	Path     string `json:"path"`
	Property string `json:"property"`
}

// String formats the key as path#property.
func (k Key) String() string {
	if k.Property == "" {
		return k.Path
	}
	return k.Path + "#" + k.Property
}

// ParseKey splits a path#property string into a Key.
func ParseKey(s string) Key {
	if i := strings.LastIndex(s, "#"); i >= 0 {
		return Key{Path: s[:i], Property: s[i+1:]}
	}
	return Key{Path: s}
}

func (k Key) validate() error {
	if strings.TrimSpace(k.Path) == "" {
		return ErrInvalidKey
	}
	return nil
}

// HistoryMeta describes a stored history without its entries.
type HistoryMeta struct {
	ID         string    `json:"id"`
	Key        Key       `json:"key"`
	EntryCount int       `json:"entry_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Output is a text that was accepted into a content field.
type Output struct {
	ID        string    `json:"id"`
	Key       Key       `json:"key"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// STORE
// =============================================================================

// Store persists dialog histories in SQLite.
type Store struct {
	db   *sql.DB
	path string

	// MaxEntries caps the entries kept per history (0 = unlimited).
	// The oldest entries are dropped on save.
	MaxEntries int
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path cannot be empty")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{db: db, path: path, MaxEntries: 200}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// HISTORIES
// =============================================================================

// LoadHistory returns the stored snapshots for key, oldest first.
// A key without history yields an empty slice and no error.
func (s *Store) LoadHistory(ctx context.Context, key Key) ([]history.Snapshot, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT entries FROM histories WHERE path = ? AND property = ?",
		key.Path, key.Property).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []history.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history %s: %w", key, err)
	}

	var entries []history.Snapshot
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history %s: %w", key, err)
	}
	return entries, nil
}

// SaveHistory replaces the stored snapshots for key. Saving an empty list
// deletes the history.
func (s *Store) SaveHistory(ctx context.Context, key Key, entries []history.Snapshot) error {
	if err := key.validate(); err != nil {
		return err
	}
	if len(entries) == 0 {
		err := s.DeleteHistory(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if s.MaxEntries > 0 && len(entries) > s.MaxEntries {
		entries = entries[len(entries)-s.MaxEntries:]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO histories (id, path, property, entries, entry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, property) DO UPDATE SET
			entries = excluded.entries,
			entry_count = excluded.entry_count,
			updated_at = excluded.updated_at`,
		uuid.New().String(), key.Path, key.Property, string(data), len(entries), now, now)
	if err != nil {
		return fmt.Errorf("failed to save history %s: %w", key, err)
	}
	return nil
}

// DeleteHistory removes the history for key.
func (s *Store) DeleteHistory(ctx context.Context, key Key) error {
	if err := key.validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM histories WHERE path = ? AND property = ?", key.Path, key.Property)
	if err != nil {
		return fmt.Errorf("failed to delete history %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListHistories returns metadata for all stored histories, most recently
// updated first. An empty prefix lists everything.
func (s *Store) ListHistories(ctx context.Context, pathPrefix string) ([]HistoryMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, property, entry_count, created_at, updated_at
		FROM histories
		WHERE path LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC, path ASC`, likePrefix(pathPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list histories: %w", err)
	}
	defer rows.Close()

	var metas []HistoryMeta
	for rows.Next() {
		var m HistoryMeta
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Key.Path, &m.Key.Property, &m.EntryCount, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		m.CreatedAt = time.UnixMilli(created)
		m.UpdatedAt = time.UnixMilli(updated)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// ClearHistories deletes all histories and returns how many were removed.
func (s *Store) ClearHistories(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM histories")
	if err != nil {
		return 0, fmt.Errorf("failed to clear histories: %w", err)
	}
	return res.RowsAffected()
}

// =============================================================================
// OUTPUTS
// =============================================================================

// RecordOutput logs a text accepted into the field identified by key.
func (s *Store) RecordOutput(ctx context.Context, key Key, text string) (Output, error) {
	if err := key.validate(); err != nil {
		return Output{}, err
	}
	out := Output{
		ID:        uuid.New().String(),
		Key:       key,
		Text:      text,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO outputs (id, path, property, text, created_at) VALUES (?, ?, ?, ?, ?)",
		out.ID, key.Path, key.Property, text, out.CreatedAt.UnixMilli())
	if err != nil {
		return Output{}, fmt.Errorf("failed to record output: %w", err)
	}
	return out, nil
}

// Outputs returns the accepted texts for key, newest first. limit <= 0
// returns all of them.
func (s *Store) Outputs(ctx context.Context, key Key, limit int) ([]Output, error) {
	if err := key.validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, created_at FROM outputs
		WHERE path = ? AND property = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, key.Path, key.Property, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outputs: %w", err)
	}
	defer rows.Close()

	var outs []Output
	for rows.Next() {
		o := Output{Key: key}
		var created int64
		if err := rows.Scan(&o.ID, &o.Text, &created); err != nil {
			return nil, fmt.Errorf("failed to scan output: %w", err)
		}
		o.CreatedAt = time.UnixMilli(created)
		outs = append(outs, o)
	}
	return outs, rows.Err()
}

// likePrefix escapes LIKE wildcards in prefix and appends %.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
