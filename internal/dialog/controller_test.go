// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/quill-tui/internal/content"
	"github.com/jeranaias/quill-tui/internal/generate"
	"github.com/jeranaias/quill-tui/internal/history"
	"github.com/jeranaias/quill-tui/internal/storage"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type generatorFunc func(ctx context.Context, req generate.Request, onPartial generate.PartialFunc) (*generate.Result, error)

func (f generatorFunc) Generate(ctx context.Context, req generate.Request, onPartial generate.PartialFunc) (*generate.Result, error) {
	return f(ctx, req, onPartial)
}

// memStore is an in-memory HistoryStore.
type memStore struct {
	mu      sync.Mutex
	entries map[storage.Key][]history.Snapshot
	saves   int
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[storage.Key][]history.Snapshot)}
}

func (s *memStore) LoadHistory(ctx context.Context, key storage.Key) ([]history.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[key], nil
}

func (s *memStore) SaveHistory(ctx context.Context, key storage.Key, entries []history.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entries
	s.saves++
	return nil
}

type harness struct {
	c      *Controller
	events chan Event
}

func newHarness(t *testing.T, opts Options, gen Generator, retriever content.Retriever, store HistoryStore) *harness {
	t.Helper()
	events := make(chan Event, 64)
	c := New(context.Background(), opts, gen, retriever, store, nil, func(ev Event) { events <- ev })
	return &harness{c: c, events: events}
}

// next waits for one event and applies it.
func (h *harness) next(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-h.events:
		h.c.Handle(ev)
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dialog event")
		return nil
	}
}

// until applies events until one of type T arrives.
func until[T Event](t *testing.T, h *harness) T {
	t.Helper()
	for {
		if ev, ok := h.next(t).(T); ok {
			return ev
		}
	}
}

func streamingGenerator(parts []string, reason string) generatorFunc {
	return func(ctx context.Context, req generate.Request, onPartial generate.PartialFunc) (*generate.Result, error) {
		acc := ""
		for _, p := range parts {
			acc += p
			onPartial(acc)
		}
		return &generate.Result{Text: acc, FinishReason: reason}, nil
	}
}

var testOpts = Options{
	ComponentPath:   "/content/site/en/jcr:content/main/text",
	Property:        "text",
	OriginalContent: "original text",
}

// =============================================================================
// FIELD TESTS
// =============================================================================

func TestController_InitialState(t *testing.T) {
	h := newHarness(t, testOpts, nil, nil, nil)
	c := h.c

	assert.Equal(t, "original text", c.Source())
	assert.Equal(t, content.SelectorWidget, c.ContentSelector())
	assert.Equal(t, None, c.PredefinedPrompt())
	assert.False(t, c.Loading())
	assert.Equal(t, history.Enablement{}, c.Enablement())
}

func TestController_PredefinedPrompt(t *testing.T) {
	c := newHarness(t, testOpts, nil, nil, nil).c

	c.SelectPredefinedPrompt("Summarize it.")
	assert.Equal(t, "Summarize it.", c.Prompt())

	c.SelectPredefinedPrompt(None)
	assert.Equal(t, "Summarize it.", c.Prompt(), "none keeps the prompt")

	c.SelectPredefinedPrompt("Shorten it.")
	c.SetPrompt("Shorten it a lot.")
	assert.Equal(t, None, c.PredefinedPrompt())
	assert.Equal(t, "Shorten it a lot.", c.Prompt())
}

func TestController_SourceEditDeselectsContent(t *testing.T) {
	c := newHarness(t, testOpts, nil, nil, nil).c
	c.SetSource("typed by hand")
	assert.Equal(t, content.SelectorNone, c.ContentSelector())
	assert.Equal(t, "typed by hand", c.Source())
}

func TestController_SelectContentSynchronous(t *testing.T) {
	c := newHarness(t, testOpts, nil, nil, nil).c
	c.SetResponse("last answer")

	c.SelectContent(content.SelectorLastOutput)
	assert.Equal(t, "last answer", c.Source())
	assert.Equal(t, 1, c.History().Len(), "selector change commits a snapshot")

	c.SelectContent(content.SelectorWidget)
	assert.Equal(t, "original text", c.Source())
	assert.Equal(t, 2, c.History().Len())

	c.SelectContent(content.SelectorNone)
	assert.Equal(t, "original text", c.Source())
	assert.Equal(t, 2, c.History().Len())

	c.SelectContent("bogus")
	assert.Equal(t, "original text", c.Source(), "unknown selector leaves the source alone")
}

func TestController_SelectContentRetrieves(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	retriever := content.RetrieverFunc(func(ctx context.Context, path string) (string, error) {
		mu.Lock()
		paths = append(paths, path)
		mu.Unlock()
		if path == "/content/site/en/jcr:content" {
			return "whole page", nil
		}
		return "", content.ErrNotFound
	})
	h := newHarness(t, testOpts, nil, retriever, nil)

	h.c.SelectContent(content.SelectorPage)
	until[RetrievedEvent](t, h)
	assert.Equal(t, "whole page", h.c.Source())
	assert.Equal(t, 1, h.c.History().Len())

	h.c.SelectContent(content.SelectorComponent)
	ev := until[RetrievedEvent](t, h)
	require.Error(t, ev.Err)
	assert.Equal(t, "whole page", h.c.Source(), "failed retrieval leaves the field unchanged")
	assert.Equal(t, 1, h.c.History().Len())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/content/site/en/jcr:content", testOpts.ComponentPath}, paths)
}

func TestController_StaleRetrievalIgnored(t *testing.T) {
	c := newHarness(t, testOpts, nil, nil, nil).c
	c.retrieveSeq = 2
	c.selector = content.SelectorComponent

	c.Handle(RetrievedEvent{Seq: 1, Selector: content.SelectorComponent, Text: "old"})
	assert.Equal(t, "original text", c.Source())

	c.Handle(RetrievedEvent{Seq: 2, Selector: content.SelectorPage, Text: "wrong selector"})
	assert.Equal(t, "original text", c.Source())

	c.Handle(RetrievedEvent{Seq: 2, Selector: content.SelectorComponent, Text: "fresh"})
	assert.Equal(t, "fresh", c.Source())
}

func TestController_ResetFields(t *testing.T) {
	c := newHarness(t, testOpts, nil, nil, nil).c
	c.SelectPredefinedPrompt("Improve it.")
	c.SetPrompt("custom")
	c.SelectPredefinedPrompt("Improve it.")
	c.SetSource("manual")
	c.SetResponse("answer")

	c.ResetFields()
	assert.Equal(t, "Improve it.", c.Prompt(), "predefined prompt re-applied")
	assert.Equal(t, "original text", c.Source())
	assert.Equal(t, "", c.Response())

	c.SelectPredefinedPrompt(None)
	c.ResetFields()
	assert.Equal(t, "", c.Prompt())
}

// =============================================================================
// GENERATION TESTS
// =============================================================================

func TestController_GenerateStreams(t *testing.T) {
	var got generate.Request
	gen := generatorFunc(func(ctx context.Context, req generate.Request, onPartial generate.PartialFunc) (*generate.Result, error) {
		got = req
		onPartial("Hel")
		onPartial("Hello")
		return &generate.Result{Text: "Hello!", FinishReason: generate.FinishStop}, nil
	})
	opts := testOpts
	opts.RichText = true
	h := newHarness(t, opts, gen, nil, nil)
	h.c.SetPrompt("greet")
	h.c.SetTextLength("40 | short")
	h.c.banner = "old banner"

	require.True(t, h.c.Generate())
	assert.True(t, h.c.Loading())
	assert.Empty(t, h.c.Banner())
	assert.False(t, h.c.Generate(), "second generate while loading is refused")

	ev := h.next(t)
	assert.IsType(t, PartialEvent{}, ev)
	assert.Equal(t, "Hel", h.c.Response())

	until[DoneEvent](t, h)
	assert.Equal(t, "Hello!", h.c.Response())
	assert.False(t, h.c.Loading())
	assert.Empty(t, h.c.Banner())
	assert.Equal(t, 0, h.c.History().Len(), "completion leaves the history alone")

	assert.Equal(t, generate.Request{Prompt: "greet", InputText: "original text", TextLength: "40 | short", RichText: true}, got)
}

func TestController_GenerateLengthWarning(t *testing.T) {
	h := newHarness(t, testOpts, streamingGenerator([]string{"a"}, generate.FinishLength), nil, nil)
	h.c.SetPrompt("p")
	h.c.Generate()
	until[DoneEvent](t, h)
	assert.Equal(t, LengthWarning, h.c.Banner())
}

func TestController_GenerateError(t *testing.T) {
	gen := generatorFunc(func(ctx context.Context, req generate.Request, onPartial generate.PartialFunc) (*generate.Result, error) {
		return nil, errors.New("backend down")
	})
	h := newHarness(t, testOpts, gen, nil, nil)
	h.c.SetPrompt("p")
	h.c.Generate()
	until[ErrorEvent](t, h)
	assert.Equal(t, "backend down", h.c.Banner())
	assert.False(t, h.c.Loading())
	assert.Equal(t, 0, h.c.History().Len())
}

func TestController_GenerateWithoutBackend(t *testing.T) {
	c := newHarness(t, testOpts, nil, nil, nil).c
	assert.False(t, c.Generate())
	assert.Equal(t, generate.ErrNoBackend.Error(), c.Banner())
}

func TestController_Stop(t *testing.T) {
	started := make(chan struct{})
	gen := generatorFunc(func(ctx context.Context, req generate.Request, onPartial generate.PartialFunc) (*generate.Result, error) {
		onPartial("partial")
		close(started)
		<-ctx.Done()
		return &generate.Result{Text: "partial", FinishReason: generate.FinishAborted}, nil
	})
	h := newHarness(t, testOpts, gen, nil, nil)
	h.c.SetPrompt("p")
	h.c.Generate()
	h.next(t) // partial
	<-started

	h.c.Stop()
	assert.False(t, h.c.Loading())
	assert.Empty(t, h.c.Banner())

	until[DoneEvent](t, h)
	assert.Equal(t, "partial", h.c.Response())
	assert.Empty(t, h.c.Banner(), "abort shows no banner")
	assert.Equal(t, 0, h.c.History().Len(), "abort is not a completion")
}

// =============================================================================
// HISTORY AND CLOSING TESTS
// =============================================================================

func TestController_HistoryNavigation(t *testing.T) {
	h := newHarness(t, testOpts, streamingGenerator([]string{"first"}, generate.FinishStop), nil, nil)
	h.c.SetPrompt("one")
	h.c.Generate()
	until[DoneEvent](t, h)
	require.Equal(t, 0, h.c.History().Len())
	h.c.SelectContent(content.SelectorLastOutput)
	require.Equal(t, 1, h.c.History().Len())

	h.c.SetPrompt("two")
	h.c.SetResponse("second")
	h.c.SelectContent(content.SelectorLastOutput)
	require.Equal(t, 2, h.c.History().Len())

	h.c.Back()
	assert.Equal(t, "one", h.c.Prompt())
	assert.Equal(t, "first", h.c.Response())
	assert.True(t, h.c.Enablement().Forward)

	h.c.Forward()
	assert.Equal(t, "two", h.c.Prompt())
	assert.Equal(t, "second", h.c.Source())

	h.c.ResetHistory()
	assert.Equal(t, 0, h.c.History().Len())
	assert.Equal(t, history.Snapshot{}, h.c.GetStatus())
}

func TestController_SubmitPersistsAndWritesBack(t *testing.T) {
	store := newMemStore()
	var order []string
	opts := testOpts
	opts.Writeback = func(text string) { order = append(order, "writeback:"+text) }
	opts.OnFinish = func() { order = append(order, "finish") }

	h := newHarness(t, opts, nil, nil, store)
	h.c.SetPrompt("p")
	h.c.SetResponse("accepted")

	assert.Equal(t, "accepted", h.c.Submit())
	assert.True(t, h.c.Closed())
	assert.Equal(t, []string{"finish", "writeback:accepted"}, order)

	saved := store.entries[opts.Key()]
	require.Len(t, saved, 1)
	assert.Equal(t, "accepted", saved[0].Response)

	assert.Equal(t, "", h.c.Submit(), "second submit is a no-op")
	assert.Len(t, order, 2)

	// reopening seeds the history
	h2 := newHarness(t, opts, nil, nil, store)
	assert.Equal(t, 1, h2.c.History().Len())
	assert.Equal(t, -1, h2.c.History().Cursor())
	assert.True(t, h2.c.Enablement().Back)
}

func TestController_Cancel(t *testing.T) {
	store := newMemStore()
	finished := 0
	opts := testOpts
	opts.Writeback = func(string) { t.Error("cancel must not write back") }
	opts.OnFinish = func() { finished++ }

	h := newHarness(t, opts, nil, nil, store)
	h.c.SetResponse("draft")
	h.c.Cancel()
	h.c.Cancel()

	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, store.saves)
	assert.False(t, h.c.Generate(), "closed dialog cannot generate")
}

func TestController_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, filepath.Join(t.TempDir(), "quill.db"))
	require.NoError(t, err)
	defer store.Close()

	h := newHarness(t, testOpts, nil, nil, store)
	h.c.SetPrompt("persist me")
	h.c.SetResponse("kept")
	h.c.Submit()

	entries, err := store.LoadHistory(ctx, testOpts.Key())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "persist me", entries[0].Prompt)

	outputs, err := store.Outputs(ctx, testOpts.Key(), 10)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, "kept", outputs[0].Text)
}
