// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the quill packages.
//
//   - AtomicWriteFile: crash-safe writes for config files and accepted output
//   - TruncateRunes, TruncateWidth: UTF-8 safe shortening for display
//   - LogSnippet: one-line excerpt of user text for log records
package util
