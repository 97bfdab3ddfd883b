// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"

	"github.com/jeranaias/quill-tui/internal/cloud"
	"github.com/jeranaias/quill-tui/internal/ollama"
)

// Finish reasons reported in Result.
const (
	FinishStop    = "stop"
	FinishLength  = "length"
	FinishAborted = "aborted"
)

// Message is a chat message passed to a backend.
type Message struct {
	Role    string
	Content string
}

// Backend streams a completion. onDelta receives each new piece of text
// in order; the returned finish reason is FinishStop or FinishLength.
type Backend interface {
	Name() string
	Model() string
	Stream(ctx context.Context, messages []Message, maxTokens int, onDelta func(delta string)) (string, error)
}

func normalizeFinish(reason string) string {
	switch reason {
	case "length", "max_tokens":
		return FinishLength
	default:
		return FinishStop
	}
}

// =============================================================================
// OLLAMA
// =============================================================================

// OllamaBackend generates with a local Ollama model.
type OllamaBackend struct {
	client *ollama.Client
	model  string
}

// NewOllamaBackend creates a backend; an empty model uses the client default.
func NewOllamaBackend(client *ollama.Client, model string) *OllamaBackend {
	if model == "" {
		model = client.GetConfig().DefaultModel
	}
	return &OllamaBackend{client: client, model: model}
}

func (b *OllamaBackend) Name() string  { return "ollama" }
func (b *OllamaBackend) Model() string { return b.model }

// Stream implements Backend.
func (b *OllamaBackend) Stream(ctx context.Context, messages []Message, maxTokens int, onDelta func(string)) (string, error) {
	msgs := make([]ollama.Message, len(messages))
	for i, m := range messages {
		msgs[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}

	var reason string
	err := b.client.ChatStream(ctx, b.model, msgs, &ollama.Options{NumPredict: maxTokens}, func(c ollama.StreamChunk) {
		if c.Content != "" {
			onDelta(c.Content)
		}
		if c.Done {
			reason = c.DoneReason
		}
	})
	return normalizeFinish(reason), err
}

// =============================================================================
// OPENROUTER
// =============================================================================

// CloudBackend generates with an OpenRouter model.
type CloudBackend struct {
	client *cloud.OpenRouterClient
}

// NewCloudBackend wraps an OpenRouter client.
func NewCloudBackend(client *cloud.OpenRouterClient) *CloudBackend {
	return &CloudBackend{client: client}
}

func (b *CloudBackend) Name() string  { return "openrouter" }
func (b *CloudBackend) Model() string { return b.client.GetModel() }

// Stream implements Backend.
func (b *CloudBackend) Stream(ctx context.Context, messages []Message, maxTokens int, onDelta func(string)) (string, error) {
	msgs := make([]cloud.ChatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = cloud.ChatMessage{Role: m.Role, Content: m.Content}
	}

	var reason string
	err := b.client.ChatStream(ctx, msgs, maxTokens, func(c cloud.StreamChunk) {
		if s := c.GetContent(); s != "" {
			onDelta(s)
		}
		if c.IsDone() {
			reason = c.GetFinishReason()
		}
	})
	return normalizeFinish(reason), err
}
