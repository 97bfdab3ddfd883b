// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialog

import "github.com/jeranaias/quill-tui/internal/generate"

// Event reports the progress of asynchronous dialog work.
type Event interface {
	event()
}

// PartialEvent carries the response generated so far.
type PartialEvent struct {
	Seq  uint64
	Text string
}

// DoneEvent reports a finished or aborted generation.
type DoneEvent struct {
	Seq    uint64
	Result *generate.Result
}

// ErrorEvent reports a failed generation.
type ErrorEvent struct {
	Seq uint64
	Err error
}

// RetrievedEvent carries content retrieved for a content selector.
type RetrievedEvent struct {
	Seq      uint64
	Selector string
	Path     string
	Text     string
	Err      error
}

func (PartialEvent) event()   {}
func (DoneEvent) event()      {}
func (ErrorEvent) event()     {}
func (RetrievedEvent) event() {}
