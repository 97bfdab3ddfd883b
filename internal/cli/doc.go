// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the quill command line.
//
// Commands:
//
//	quill [open]           Open the content creation dialog for a field
//	quill serve            Run the HTTP service
//	quill history          List, show or clear stored dialog histories
//	quill config           Show, get or set configuration values
//	quill version          Print version information
//
// The dialog runs as a full screen Bubble Tea program when stdin and stdout
// are terminals, and as a line mode prompt (liner) otherwise or with --line.
package cli
