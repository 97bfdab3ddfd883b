// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/quill-tui/internal/history"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "sub", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var teaserKey = Key{Path: "/content/site/en/jcr:content/root/teaser", Property: "text"}

func TestKey_ParseAndString(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"/content/a#title", Key{Path: "/content/a", Property: "title"}},
		{"/content/a", Key{Path: "/content/a"}},
		{"/content/a#b#text", Key{Path: "/content/a#b", Property: "text"}},
	}
	for _, tt := range tests {
		got := ParseKey(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.in, got.String())
	}
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	store := openTestStore(t)
	entries, err := store.LoadHistory(context.Background(), teaserKey)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_SaveLoadReplace(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := []history.Snapshot{{Prompt: "one"}, {Prompt: "two", Response: "<p>hi</p>"}}
	require.NoError(t, store.SaveHistory(ctx, teaserKey, first))

	got, err := store.LoadHistory(ctx, teaserKey)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := append(first, history.Snapshot{Prompt: "three"})
	require.NoError(t, store.SaveHistory(ctx, teaserKey, second))
	got, err = store.LoadHistory(ctx, teaserKey)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	metas, err := store.ListHistories(ctx, "")
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, 3, metas[0].EntryCount)
	assert.Equal(t, teaserKey, metas[0].Key)
}

func TestStore_SaveEmptyDeletes(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	require.NoError(t, store.SaveHistory(ctx, teaserKey, []history.Snapshot{{Prompt: "x"}}))

	require.NoError(t, store.SaveHistory(ctx, teaserKey, nil))

	metas, err := store.ListHistories(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, metas)

	assert.NoError(t, store.SaveHistory(ctx, teaserKey, nil), "saving empty twice is not an error")
}

func TestStore_MaxEntriesKeepsNewest(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	store.MaxEntries = 2

	entries := []history.Snapshot{{Prompt: "a"}, {Prompt: "b"}, {Prompt: "c"}}
	require.NoError(t, store.SaveHistory(ctx, teaserKey, entries))

	got, err := store.LoadHistory(ctx, teaserKey)
	require.NoError(t, err)
	assert.Equal(t, entries[1:], got)
}

func TestStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	other := Key{Path: "/content/other_site/x", Property: "text"}

	require.NoError(t, store.SaveHistory(ctx, teaserKey, []history.Snapshot{{Prompt: "x"}}))
	require.NoError(t, store.SaveHistory(ctx, other, []history.Snapshot{{Prompt: "y"}}))

	metas, err := store.ListHistories(ctx, "/content/other_")
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, other, metas[0].Key)

	require.NoError(t, store.DeleteHistory(ctx, teaserKey))
	assert.ErrorIs(t, store.DeleteHistory(ctx, teaserKey), ErrNotFound)

	n, err := store.ClearHistories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_InvalidKey(t *testing.T) {
	store := openTestStore(t)
	_, err := store.LoadHistory(context.Background(), Key{Property: "text"})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestStore_Outputs(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.RecordOutput(ctx, teaserKey, "first")
	require.NoError(t, err)
	_, err = store.RecordOutput(ctx, teaserKey, "second")
	require.NoError(t, err)

	outs, err := store.Outputs(ctx, teaserKey, 0)
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, "second", outs[0].Text)

	outs, err = store.Outputs(ctx, teaserKey, 1)
	require.NoError(t, err)
	assert.Len(t, outs, 1)
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.SaveHistory(ctx, teaserKey, []history.Snapshot{{Prompt: "kept"}}))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.LoadHistory(ctx, teaserKey)
	require.NoError(t, err)
	assert.Equal(t, []history.Snapshot{{Prompt: "kept"}}, got)
}
