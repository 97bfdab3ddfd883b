// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with Ollama API.
//
// Only the chat endpoint is used: content generation sends a single user
// message and limits output with Options.NumPredict.
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url})
//	err := client.ChatStream(ctx, "", msgs, &ollama.Options{NumPredict: 400},
//	    func(chunk ollama.StreamChunk) {
//	        fmt.Print(chunk.Content)
//	    })
//
// Streaming responses are newline-delimited JSON objects; the final object
// has done=true and a done_reason of "stop" or "length".
package ollama
