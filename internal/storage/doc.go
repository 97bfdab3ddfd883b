// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides dialog history persistence for quill.
//
// Histories are kept per content field, keyed by the component path and the
// property name, so reopening the dialog on the same field seeds the navigator
// with the snapshots of earlier sessions. Accepted texts are kept in a
// separate log.
//
// # Key Types
//
//   - Store: SQLite-backed history and output store
//   - Key: (path, property) identity of a content field
//   - HistoryMeta: lightweight metadata for listing
//   - Output: one accepted text
//
// # Usage
//
//	store, err := storage.Open(ctx, dbPath)
//	entries, err := store.LoadHistory(ctx, key)
//	err = store.SaveHistory(ctx, key, nav.Entries())
//
// # Storage Location
//
// The database lives at ~/.quill/history.db unless storage.db_path is set.
package storage
