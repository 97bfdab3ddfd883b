// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides OpenRouter integration for cloud LLM inference.
//
// OpenRouter exposes many providers behind an OpenAI-compatible chat
// completions API. Content generation uses it when generation.backend is
// "openrouter".
//
// # Key Types
//
//   - OpenRouterClient: HTTP client with retry and streaming support
//   - ChatMessage: chat message in OpenRouter format
//   - SSEReader: Server-Sent Events parser for streaming responses
//
// # Usage
//
//	client := cloud.NewOpenRouterClient(apiKey).WithModel("haiku")
//	err := client.ChatStream(ctx, []cloud.ChatMessage{cloud.NewUserMessage(p)}, 400,
//	    func(chunk cloud.StreamChunk) {
//	        fmt.Print(chunk.GetContent())
//	    })
//
// # Security
//
// API keys are never logged; APIKeyMasked returns a fingerprint only.
package cloud
