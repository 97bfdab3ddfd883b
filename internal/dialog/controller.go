// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialog

import (
	"context"
	"log"
	"time"

	"github.com/jeranaias/quill-tui/internal/content"
	"github.com/jeranaias/quill-tui/internal/generate"
	"github.com/jeranaias/quill-tui/internal/history"
	"github.com/jeranaias/quill-tui/internal/storage"
)

// LengthWarning is shown when a generation hit its token limit.
const LengthWarning = "The generated content stopped because of the length restriction."

// persistTimeout bounds history load and save.
const persistTimeout = 5 * time.Second

// =============================================================================
// COLLABORATORS
// =============================================================================

// HistoryStore loads and saves snapshot histories. *storage.Store
// implements it.
type HistoryStore interface {
	LoadHistory(ctx context.Context, key storage.Key) ([]history.Snapshot, error)
	SaveHistory(ctx context.Context, key storage.Key, entries []history.Snapshot) error
}

// outputRecorder is implemented by stores that keep accepted texts.
type outputRecorder interface {
	RecordOutput(ctx context.Context, key storage.Key, text string) (storage.Output, error)
}

// Generator runs generation requests. *generate.Service implements it.
type Generator interface {
	Generate(ctx context.Context, req generate.Request, onPartial generate.PartialFunc) (*generate.Result, error)
}

// Options describe the field being edited.
type Options struct {
	// ComponentPath is the content path of the edited component.
	ComponentPath string
	// Property names the edited field of the component.
	Property string
	// OriginalContent is the field's value when the dialog opened.
	OriginalContent string
	// RichText marks an HTML field.
	RichText bool
	// TextLength is the initially selected text length.
	TextLength string
	// Writeback receives the accepted response after the dialog closed.
	Writeback func(text string)
	// OnFinish runs when the dialog closes by submit or cancel.
	OnFinish func()
}

// Key returns the history key of the edited field.
func (o Options) Key() storage.Key {
	return storage.Key{Path: o.ComponentPath, Property: o.Property}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the content creation dialog. It is not safe for concurrent
// use: all methods, including Handle, must be called from one goroutine.
type Controller struct {
	opts      Options
	generator Generator
	retriever content.Retriever
	store     HistoryStore
	library   *Library
	post      func(Event)

	nav *history.Navigator

	prompt     string
	predefined string
	selector   string
	source     string
	textLength string
	response   string

	banner  string
	loading bool
	closed  bool

	genSeq      uint64
	retrieveSeq uint64
	cancelMgr   *cancelManager
}

// New opens a dialog for the field described by opts. Events from
// asynchronous work are delivered through post, which must be safe to call
// from any goroutine. store, retriever and library may be nil.
func New(ctx context.Context, opts Options, generator Generator, retriever content.Retriever, store HistoryStore, library *Library, post func(Event)) *Controller {
	if library == nil {
		library = DefaultLibrary()
	}
	if post == nil {
		post = func(Event) {}
	}

	c := &Controller{
		opts:       opts,
		generator:  generator,
		retriever:  retriever,
		store:      store,
		library:    library,
		post:       post,
		predefined: None,
		selector:   content.SelectorWidget,
		source:     opts.OriginalContent,
		textLength: opts.TextLength,
		cancelMgr:  newCancelManager(),
	}

	var seed []history.Snapshot
	if store != nil && opts.ComponentPath != "" {
		loadCtx, cancel := context.WithTimeout(ctx, persistTimeout)
		entries, err := store.LoadHistory(loadCtx, opts.Key())
		cancel()
		if err != nil {
			log.Printf("DIALOG_HISTORY_LOAD_FAILED | key=%s error=%v", opts.Key(), err)
		}
		seed = entries
	}
	c.nav = history.New(c, seed)

	log.Printf("DIALOG_OPEN | key=%s rich=%v seeded=%d", opts.Key(), opts.RichText, len(seed))
	return c
}

// =============================================================================
// STATUS ACCESSOR
// =============================================================================

// GetStatus returns the current field values.
func (c *Controller) GetStatus() history.Snapshot {
	return history.Snapshot{
		Prompt:           c.prompt,
		PredefinedPrompt: c.predefined,
		ContentSelector:  c.selector,
		SourceContent:    c.source,
		TextLength:       c.textLength,
		Response:         c.response,
	}
}

// SetStatus replaces all field values.
func (c *Controller) SetStatus(s history.Snapshot) {
	c.prompt = s.Prompt
	c.predefined = s.PredefinedPrompt
	c.selector = s.ContentSelector
	c.source = s.SourceContent
	c.textLength = s.TextLength
	c.response = s.Response
}

// =============================================================================
// FIELD ACCESS
// =============================================================================

func (c *Controller) Options() Options { return c.opts }
func (c *Controller) Library() *Library { return c.library }
func (c *Controller) Prompt() string { return c.prompt }
func (c *Controller) PredefinedPrompt() string { return c.predefined }
func (c *Controller) ContentSelector() string { return c.selector }
func (c *Controller) Source() string { return c.source }
func (c *Controller) TextLength() string { return c.textLength }
func (c *Controller) Response() string { return c.response }
func (c *Controller) Banner() string { return c.banner }
func (c *Controller) Loading() bool { return c.loading }
func (c *Controller) Closed() bool { return c.closed }
func (c *Controller) Enablement() history.Enablement {
	return c.nav.Enablement()
}

// History exposes the navigator, mainly for inspection.
func (c *Controller) History() *history.Navigator {
	return c.nav
}

// =============================================================================
// FIELD EDITS
// =============================================================================

// SetPrompt records a manual prompt edit, which deselects any predefined
// prompt.
func (c *Controller) SetPrompt(s string) {
	if s == c.prompt {
		return
	}
	c.prompt = s
	c.predefined = None
}

// SelectPredefinedPrompt selects a predefined prompt and copies it into the
// prompt field. None keeps the prompt as it is.
func (c *Controller) SelectPredefinedPrompt(value string) {
	c.predefined = value
	c.applyPredefinedPrompt()
}

func (c *Controller) applyPredefinedPrompt() {
	if c.predefined != None && c.predefined != "" {
		c.prompt = c.predefined
	}
}

// SetSource records a manual source edit, which deselects the content
// selector.
func (c *Controller) SetSource(s string) {
	if s == c.source {
		return
	}
	c.source = s
	c.selector = content.SelectorNone
}

// SetTextLength selects a text length option.
func (c *Controller) SetTextLength(value string) {
	c.textLength = value
}

// SetResponse records a manual edit of the response.
func (c *Controller) SetResponse(s string) {
	c.response = s
}

// SelectContent selects a content source and loads it into the source
// field. Component and page sources are retrieved asynchronously.
func (c *Controller) SelectContent(value string) {
	c.selector = value
	c.applyContentSelector()
}

func (c *Controller) applyContentSelector() {
	switch c.selector {
	case content.SelectorLastOutput:
		c.source = c.response
		c.nav.Commit()
	case content.SelectorWidget:
		c.source = c.opts.OriginalContent
		c.nav.Commit()
	case content.SelectorComponent:
		c.retrieve(c.selector, c.opts.ComponentPath)
	case content.SelectorPage:
		c.retrieve(c.selector, content.PagePath(c.opts.ComponentPath))
	case content.SelectorNone, "":
	default:
		log.Printf("DIALOG_UNKNOWN_SELECTOR | value=%q", c.selector)
	}
}

// retrieve fetches path in the background and posts a RetrievedEvent.
func (c *Controller) retrieve(selector, path string) {
	if c.retriever == nil {
		log.Printf("DIALOG_RETRIEVE_SKIPPED | selector=%s path=%s reason=no retriever", selector, path)
		return
	}
	c.retrieveSeq++
	seq := c.retrieveSeq
	retriever := c.retriever
	post := c.post
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		text, err := retriever.Retrieve(ctx, path)
		post(RetrievedEvent{Seq: seq, Selector: selector, Path: path, Text: text, Err: err})
	}()
}

// ResetFields restores the fields to their initial values and re-applies
// the selected predefined prompt and content source.
func (c *Controller) ResetFields() {
	c.prompt = ""
	c.source = c.opts.OriginalContent
	c.response = ""
	c.applyPredefinedPrompt()
	c.applyContentSelector()
}

// =============================================================================
// HISTORY
// =============================================================================

// Back shows the previous history entry.
func (c *Controller) Back() { c.nav.Back() }

// Forward shows the next history entry.
func (c *Controller) Forward() { c.nav.Forward() }

// ResetHistory discards the history and clears all fields.
func (c *Controller) ResetHistory() { c.nav.Reset() }

// =============================================================================
// GENERATION
// =============================================================================

// Generate starts a generation from the current fields. Returns false when
// one is already running or no generator is configured.
func (c *Controller) Generate() bool {
	if c.loading || c.closed {
		return false
	}
	if c.generator == nil {
		c.banner = generate.ErrNoBackend.Error()
		return false
	}

	c.banner = ""
	c.loading = true
	c.genSeq++
	seq := c.genSeq

	req := generate.Request{
		Prompt:     c.prompt,
		InputText:  c.source,
		TextLength: c.textLength,
		RichText:   c.opts.RichText,
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelMgr.set(cancel)

	generator := c.generator
	post := c.post
	go func() {
		defer cancel()
		result, err := generator.Generate(ctx, req, func(text string) {
			post(PartialEvent{Seq: seq, Text: text})
		})
		if err != nil {
			post(ErrorEvent{Seq: seq, Err: err})
			return
		}
		post(DoneEvent{Seq: seq, Result: result})
	}()

	log.Printf("DIALOG_GENERATE | key=%s seq=%d text_length=%q", c.opts.Key(), seq, c.textLength)
	return true
}

// Stop aborts the running generation. No banner is shown.
func (c *Controller) Stop() {
	c.cancelMgr.cancel()
	// later events of the aborted run are ignored
	c.genSeq++
	c.loading = false
}

// Handle applies an event posted by asynchronous work. Events of
// superseded generations or retrievals are ignored.
func (c *Controller) Handle(ev Event) {
	switch ev := ev.(type) {
	case PartialEvent:
		if ev.Seq != c.genSeq || !c.loading {
			return
		}
		c.response = ev.Text

	case DoneEvent:
		if ev.Seq != c.genSeq || !c.loading {
			return
		}
		c.loading = false
		if ev.Result == nil {
			return
		}
		c.response = ev.Result.Text
		switch ev.Result.FinishReason {
		case generate.FinishAborted:
		case generate.FinishLength:
			c.banner = LengthWarning
		default:
			c.banner = ""
		}

	case ErrorEvent:
		if ev.Seq != c.genSeq || !c.loading {
			return
		}
		c.loading = false
		c.banner = ev.Err.Error()

	case RetrievedEvent:
		if ev.Seq != c.retrieveSeq || ev.Selector != c.selector {
			return
		}
		if ev.Err != nil {
			log.Printf("DIALOG_RETRIEVE_FAILED | selector=%s path=%s error=%v", ev.Selector, ev.Path, ev.Err)
			return
		}
		c.source = ev.Text
		c.nav.Commit()
	}
}

// =============================================================================
// CLOSING
// =============================================================================

// Submit accepts the response: it records the current state in the
// history, closes the dialog and hands the response to the writeback
// callback.
func (c *Controller) Submit() string {
	if c.closed {
		return ""
	}
	c.nav.Commit()
	response := c.response
	c.close()

	if c.opts.Writeback != nil {
		c.opts.Writeback(response)
	}
	if rec, ok := c.store.(outputRecorder); ok && c.opts.ComponentPath != "" {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if _, err := rec.RecordOutput(ctx, c.opts.Key(), response); err != nil {
			log.Printf("DIALOG_OUTPUT_SAVE_FAILED | key=%s error=%v", c.opts.Key(), err)
		}
		cancel()
	}
	log.Printf("DIALOG_SUBMIT | key=%s chars=%d", c.opts.Key(), len(response))
	return response
}

// Cancel closes the dialog without writing back.
func (c *Controller) Cancel() {
	if c.closed {
		return
	}
	c.close()
	log.Printf("DIALOG_CANCEL | key=%s", c.opts.Key())
}

func (c *Controller) close() {
	c.cancelMgr.cancel()
	c.loading = false
	c.closed = true
	c.persist()
	if c.opts.OnFinish != nil {
		c.opts.OnFinish()
	}
}

func (c *Controller) persist() {
	if c.store == nil || c.opts.ComponentPath == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.store.SaveHistory(ctx, c.opts.Key(), c.nav.Entries()); err != nil {
		log.Printf("DIALOG_HISTORY_SAVE_FAILED | key=%s error=%v", c.opts.Key(), err)
	}
}
