// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides linear back/forward navigation over dialog state
// snapshots for the content creation dialog.
//
// The navigator never reads or writes the dialog directly. The host supplies an
// Accessor whose GetStatus/SetStatus pair produces and applies Snapshot values.
//
// # Key Types
//
//   - Snapshot: comparable value holding the full editable dialog state
//   - Accessor: getter/setter pair supplied by the host UI
//   - Navigator: history list, cursor and the back/forward/reset operations
//   - Enablement: pull-based button state derived from the cursor
//
// # Usage
//
//	nav := history.New(dialog, seeded)
//	nav.Back()
//	if nav.Enablement().Forward {
//	    nav.Forward()
//	}
//	nav.Commit() // on submit
//
// # Cursor
//
// The cursor is -1 until the user navigates or commits. At -1 the dialog shows
// unsaved state that sits virtually past the end of the list, so Back from -1
// records that state (if it differs from the last entry) before stepping onto
// the last entry.
package history
