// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// FILE WATCHER
// =============================================================================

// DefaultDebounce is the quiet period after the last change of a file before
// its callbacks run.
const DefaultDebounce = 250 * time.Millisecond

// ChangeFunc is called with the path of a changed file.
type ChangeFunc func(path string)

// Watcher watches individual files and calls their callbacks once a burst of
// changes settles. Directories are watched instead of the files themselves
// so that editors replacing a file by rename are still seen.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	handlers map[string][]ChangeFunc
	pending  map[string]time.Time // File path -> last change time
	dirs     map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a Watcher. A debounce of zero uses DefaultDebounce.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		watcher:  fw,
		debounce: debounce,
		handlers: make(map[string][]ChangeFunc),
		pending:  make(map[string]time.Time),
		dirs:     make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// OnChange registers fn for path. The file does not need to exist yet, but
// its directory does.
func (w *Watcher) OnChange(path string, fn ChangeFunc) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[dir] {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.dirs[dir] = true
	}
	w.handlers[path] = append(w.handlers[path], fn)
	return nil
}

// Start begins processing events in the background.
func (w *Watcher) Start() {
	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
}

// Close stops the watcher and waits for its goroutines.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			if _, watched := w.handlers[event.Name]; watched {
				w.pending[event.Name] = time.Now()
			}
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("CONFIG_WATCH_ERROR | error=%v", err)
		}
	}
}

// processPending runs callbacks for files that have been quiet for the
// debounce period.
func (w *Watcher) processPending() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			var due []string
			var fns [][]ChangeFunc

			w.mu.Lock()
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					due = append(due, path)
					fns = append(fns, append([]ChangeFunc(nil), w.handlers[path]...))
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for i, path := range due {
				for _, fn := range fns[i] {
					fn(path)
				}
			}
		}
	}
}

// =============================================================================
// GLOBAL CONFIG RELOAD
// =============================================================================

// WatchGlobal reloads the global configuration whenever the TOML or JSON
// config file changes and passes the new configuration to fn. A file that
// fails to load or validate leaves the previous configuration in place.
func WatchGlobal(w *Watcher, fn func(*Config)) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	reload := func(path string) {
		if err := ReloadGlobal(); err != nil {
			log.Printf("CONFIG_RELOAD_FAILED | path=%s error=%v", path, err)
			return
		}
		log.Printf("CONFIG_RELOADED | path=%s", path)
		if fn != nil {
			fn(Global())
		}
	}
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			return err
		}
		if err := w.OnChange(path, reload); err != nil {
			return err
		}
	}
	return nil
}
