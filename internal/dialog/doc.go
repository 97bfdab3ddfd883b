// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dialog implements the content creation dialog independent of
// any rendering.
//
// A Controller owns the dialog fields (prompt, predefined prompt, content
// selector, source, text length and response), the history navigator over
// them, and the asynchronous work the dialog starts: content retrieval and
// generation. Async work never touches controller state directly. It posts
// Events through the function given to New, and the owning goroutine (the
// Bubble Tea update loop or the line-mode REPL) feeds them back through
// Controller.Handle.
//
// History snapshots are taken on back, forward and reset, when a content
// selector value has been applied, when a generation completes, and on
// submit. The history of each (path, property) pair is loaded when the
// dialog opens and saved when it closes.
package dialog
