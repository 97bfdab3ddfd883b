// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

// Enablement reports which navigation buttons may be used.
type Enablement struct {
	Back    bool
	Forward bool
	Reset   bool
}

// Navigator keeps the snapshot history of one dialog session and a cursor
// into it. It is not safe for concurrent use; the dialog drives it from a
// single goroutine.
type Navigator struct {
	acc     Accessor
	entries []Snapshot
	cursor  int
}

// New creates a navigator over the given accessor. Seed entries from a
// previous session are copied and treated as past entries; the cursor starts
// at -1 so the dialog keeps showing its current state.
func New(acc Accessor, seed []Snapshot) *Navigator {
	entries := make([]Snapshot, len(seed))
	copy(entries, seed)
	return &Navigator{
		acc:     acc,
		entries: entries,
		cursor:  -1,
	}
}

// =============================================================================
// NAVIGATION
// =============================================================================

// Back steps to the previous entry. The current state is recorded first
// when it was changed. No-op when there is nothing to go back to.
func (n *Navigator) Back() {
	switch {
	case n.cursor > 0:
		n.captureIfChanged(true)
		n.cursor--
	case n.cursor == -1 && len(n.entries) > 0:
		n.cursor = n.enterFromUnsaved()
	default:
		return
	}
	n.acc.SetStatus(n.entries[n.cursor])
}

// Forward steps to the next entry. No-op at the end of the list. With no
// entry selected it moves to the first entry without recording anything.
func (n *Navigator) Forward() {
	if n.cursor >= len(n.entries)-1 {
		return
	}
	n.captureIfChanged(true)
	n.cursor++
	n.acc.SetStatus(n.entries[n.cursor])
}

// Reset discards the whole history and clears the dialog. The current state
// is not recorded.
func (n *Navigator) Reset() {
	n.entries = nil
	n.cursor = -1
	n.acc.SetStatus(Snapshot{})
}

// Commit records the current state at a hand-off point such as submit or
// a content-selector change, and points the cursor at the recorded entry.
func (n *Navigator) Commit() {
	if n.cursor >= 0 {
		n.captureIfChanged(false)
		return
	}
	current := n.acc.GetStatus()
	if len(n.entries) == 0 || current != n.entries[len(n.entries)-1] {
		n.entries = append(n.entries, current)
	}
	n.cursor = len(n.entries) - 1
}

// captureIfChanged appends the current state when it differs from the entry
// at the cursor and from the entry right after it. Only the following entry is
// checked; a state equal to the preceding entry is still recorded. With pin
// set the cursor stays where it is.
func (n *Navigator) captureIfChanged(pin bool) {
	if n.cursor < 0 {
		return
	}
	current := n.acc.GetStatus()
	if current == n.entries[n.cursor] {
		return
	}
	if next := n.cursor + 1; next < len(n.entries) && current == n.entries[next] {
		return
	}
	n.entries = append(n.entries, current)
	if !pin {
		n.cursor = len(n.entries) - 1
	}
}

// enterFromUnsaved handles Back while no entry is selected. The displayed
// state sits after the last entry: it is recorded when it differs from the
// last entry, and the returned cursor is the last pre-existing entry. When it
// equals the last entry the cursor skips over that entry if it can.
func (n *Navigator) enterFromUnsaved() int {
	last := len(n.entries) - 1
	current := n.acc.GetStatus()
	if !current.Equal(n.entries[last]) {
		n.entries = append(n.entries, current)
		return last
	}
	if last > 0 {
		return last - 1
	}
	return last
}

// =============================================================================
// QUERIES
// =============================================================================

// Enablement returns the button state for the current cursor.
func (n *Navigator) Enablement() Enablement {
	return Enablement{
		Back:    n.cursor > 0 || (n.cursor == -1 && len(n.entries) > 0),
		Forward: n.cursor < len(n.entries)-1,
		Reset:   n.cursor >= 0,
	}
}

// Cursor returns the selected entry index, or -1.
func (n *Navigator) Cursor() int {
	return n.cursor
}

// Len returns the number of entries.
func (n *Navigator) Len() int {
	return len(n.entries)
}

// Entries returns a copy of the history list.
func (n *Navigator) Entries() []Snapshot {
	out := make([]Snapshot, len(n.entries))
	copy(out, n.entries)
	return out
}
