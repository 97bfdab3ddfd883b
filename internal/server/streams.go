// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultMaxStreams is the number of unclaimed streams kept at once.
	DefaultMaxStreams = 10

	// DefaultStreamExpiry is how long a registered stream waits for its
	// client to connect.
	DefaultStreamExpiry = time.Minute
)

// SSE event names.
const (
	eventPartial  = "partial"
	eventFinished = "finished"
	eventError    = "exception"
)

// ============================================================================
// STREAM
// ============================================================================

// sseEvent is one server-sent event.
type sseEvent struct {
	name string
	data []byte
}

// stream buffers the events of one running generation until a client reads
// them. Events are replayed from the start, so a client connecting late
// misses nothing.
type stream struct {
	id      string
	created time.Time
	cancel  context.CancelFunc

	mu     sync.Mutex
	events []sseEvent
	done   bool
	notify chan struct{}
}

func newStream(cancel context.CancelFunc) *stream {
	return &stream{
		id:      uuid.New().String(),
		created: time.Now(),
		cancel:  cancel,
		notify:  make(chan struct{}),
	}
}

// push appends an event and wakes the reader. final marks the end of the
// stream; events after it are dropped.
func (s *stream) push(name string, payload any, final bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("STREAM_ENCODE_FAILED | id=%s event=%s error=%v", s.id, name, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.events = append(s.events, sseEvent{name: name, data: data})
	s.done = final
	close(s.notify)
	s.notify = make(chan struct{})
}

// writeTo writes events as they arrive until the final event was written or
// ctx is done. flush is called after every event.
func (s *stream) writeTo(ctx context.Context, w io.Writer, flush func()) error {
	next := 0
	for {
		s.mu.Lock()
		pending := s.events[next:]
		done := s.done
		wait := s.notify
		s.mu.Unlock()

		for _, ev := range pending {
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data); err != nil {
				return err
			}
			next++
		}
		if len(pending) > 0 {
			flush()
		}
		if done {
			return nil
		}

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ============================================================================
// REGISTRY
// ============================================================================

// streamRegistry holds streams between their creation and the moment a
// client claims them. It is safe for concurrent use.
type streamRegistry struct {
	mu      sync.Mutex
	streams map[string]*stream
	order   []string
	limit   int
	expiry  time.Duration
	now     func() time.Time
}

func newStreamRegistry(limit int, expiry time.Duration) *streamRegistry {
	if limit <= 0 {
		limit = DefaultMaxStreams
	}
	if expiry <= 0 {
		expiry = DefaultStreamExpiry
	}
	return &streamRegistry{
		streams: make(map[string]*stream),
		limit:   limit,
		expiry:  expiry,
		now:     time.Now,
	}
}

// add registers s, evicting the oldest streams beyond the capacity.
// Evicted and expired streams have their generation canceled.
func (r *streamRegistry) add(s *stream) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	for len(r.order) >= r.limit {
		oldest := r.order[0]
		r.removeLocked(oldest)
		log.Printf("STREAM_EVICTED | id=%s", oldest)
	}
	r.streams[s.id] = s
	r.order = append(r.order, s.id)
}

// claim removes and returns the stream with id. Unknown and expired ids
// return nil.
func (r *streamRegistry) claim(id string) *stream {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	s, ok := r.streams[id]
	if !ok {
		return nil
	}
	delete(r.streams, id)
	r.dropOrderLocked(id)
	return s
}

// len returns the number of unclaimed streams.
func (r *streamRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	return len(r.streams)
}

// closeAll cancels every unclaimed stream.
func (r *streamRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.order) > 0 {
		r.removeLocked(r.order[0])
	}
}

func (r *streamRegistry) pruneLocked() {
	cutoff := r.now().Add(-r.expiry)
	for len(r.order) > 0 {
		s := r.streams[r.order[0]]
		if s != nil && s.created.After(cutoff) {
			return
		}
		log.Printf("STREAM_EXPIRED | id=%s", r.order[0])
		r.removeLocked(r.order[0])
	}
}

func (r *streamRegistry) removeLocked(id string) {
	if s, ok := r.streams[id]; ok {
		s.cancel()
		delete(r.streams, id)
	}
	r.dropOrderLocked(id)
}

func (r *streamRegistry) dropOrderLocked(id string) {
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
