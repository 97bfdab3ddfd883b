// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package content retrieves the text a generation runs against.
//
// A Retriever resolves a content path (a component or page path) to an
// approximate markdown rendition of it. Two implementations are provided:
//
//   - HTTPRetriever asks a remote site for its approximated markdown
//     rendition of the path.
//   - FileRetriever reads markdown, text or HTML files below a local root
//     directory, converting HTML to markdown.
//
// Retrieved text is NFC normalized and trimmed regardless of source.
package content
