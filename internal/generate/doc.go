// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package generate runs content creation requests against an LLM backend.
//
// A Request carries the user prompt, an optional text length directive, and
// the source text the prompt operates on (given inline or as a content path).
// BuildPrompt turns the request into the final prompt and token limit; the
// Service validates it, resolves input paths, streams partial output to the
// caller and sanitizes the result.
//
// Backends:
//
//	OllamaBackend  local models over the Ollama NDJSON chat API
//	CloudBackend   OpenRouter chat completions over SSE
package generate
