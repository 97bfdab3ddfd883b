// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"errors"
	"html"
	"log"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jeranaias/quill-tui/internal/content"
)

// DefaultSystemPrompt frames every content creation request.
const DefaultSystemPrompt = "You are a professional content writer. Answer only with the requested text, " +
	"without any introduction or commentary."

// Result is the outcome of a generation.
type Result struct {
	Text         string        `json:"text"`
	FinishReason string        `json:"finishreason"`
	Model        string        `json:"model,omitempty"`
	Duration     time.Duration `json:"-"`
}

// Truncated reports whether generation stopped at the token limit.
func (r *Result) Truncated() bool {
	return r.FinishReason == FinishLength
}

// PartialFunc receives the sanitized text accumulated so far.
type PartialFunc func(accumulated string)

// DefaultPartialInterval is the minimum time between two partial updates.
// Deltas arriving in between are folded into the next update; the final text
// is always delivered in the Result.
const DefaultPartialInterval = 100 * time.Millisecond

// Service runs content creation requests. It is safe for concurrent use.
type Service struct {
	backend      Backend
	retriever    content.Retriever
	systemPrompt string
	partialEvery time.Duration
	richPolicy   *bluemonday.Policy
	plainPolicy  *bluemonday.Policy
}

// NewService creates a service. retriever may be nil, in which case
// requests with an InputPath fail.
func NewService(backend Backend, retriever content.Retriever) *Service {
	return &Service{
		backend:      backend,
		retriever:    retriever,
		systemPrompt: DefaultSystemPrompt,
		partialEvery: DefaultPartialInterval,
		richPolicy:   bluemonday.UGCPolicy(),
		plainPolicy:  bluemonday.StrictPolicy(),
	}
}

// WithSystemPrompt overrides the system prompt.
func (s *Service) WithSystemPrompt(prompt string) *Service {
	if prompt != "" {
		s.systemPrompt = prompt
	}
	return s
}

// WithPartialInterval sets the minimum time between partial updates.
// Zero reports every delta.
func (s *Service) WithPartialInterval(d time.Duration) *Service {
	if d >= 0 {
		s.partialEvery = d
	}
	return s
}

// Backend returns the configured backend.
func (s *Service) Backend() Backend {
	return s.backend
}

// Retriever returns the content retriever, possibly nil.
func (s *Service) Retriever() content.Retriever {
	return s.retriever
}

// Generate validates req, resolves its input and streams the completion.
// onPartial may be nil. Canceling ctx stops the backend and returns the text
// produced so far with FinishAborted and a nil error.
func (s *Service) Generate(ctx context.Context, req Request, onPartial PartialFunc) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.backend == nil {
		return nil, ErrNoBackend
	}

	input := req.InputText
	if !isBlank(req.InputPath) {
		if s.retriever == nil {
			return nil, &Error{Type: ErrTypeContent, Message: "No resource found at " + req.InputPath}
		}
		text, err := s.retriever.Retrieve(ctx, req.InputPath)
		if err != nil {
			return nil, &Error{Type: ErrTypeContent, Message: "No resource found at " + req.InputPath, Cause: err}
		}
		input = text
	}

	prompt := BuildPrompt(req)
	return s.run(ctx, "create", s.messages(prompt.Text, input), prompt.MaxTokens, req.RichText, onPartial)
}

// run streams one completion and sanitizes its text. A canceled ctx yields
// the partial text with FinishAborted.
func (s *Service) run(ctx context.Context, op string, messages []Message, maxTokens int, rich bool, onPartial PartialFunc) (*Result, error) {
	start := time.Now()
	var acc strings.Builder
	var lastPartial time.Time
	reason, err := s.backend.Stream(ctx, messages, maxTokens, func(delta string) {
		acc.WriteString(delta)
		if onPartial == nil {
			return
		}
		// Sanitizing walks the whole text, so updates are rate limited.
		if now := time.Now(); now.Sub(lastPartial) >= s.partialEvery {
			lastPartial = now
			onPartial(s.sanitize(acc.String(), rich))
		}
	})

	result := &Result{
		Text:         s.sanitize(acc.String(), rich),
		FinishReason: reason,
		Model:        s.backend.Model(),
		Duration:     time.Since(start),
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			result.FinishReason = FinishAborted
			log.Printf("GENERATE_ABORTED | op=%s backend=%s chars=%d duration=%v", op, s.backend.Name(), len(result.Text), result.Duration)
			return result, nil
		}
		log.Printf("GENERATE_ERROR | op=%s backend=%s error=%v", op, s.backend.Name(), err)
		return nil, classify(ctx, err)
	}

	log.Printf("GENERATE_DONE | op=%s backend=%s model=%s finish=%s max_tokens=%d duration=%v",
		op, s.backend.Name(), result.Model, result.FinishReason, maxTokens, result.Duration)
	return result, nil
}

func (s *Service) messages(prompt, input string) []Message {
	msgs := []Message{{Role: "system", Content: s.systemPrompt}}
	if !isBlank(input) {
		msgs = append(msgs, Message{Role: "user", Content: input})
	}
	return append(msgs, Message{Role: "user", Content: prompt})
}

// sanitize filters markup from generated text. Rich text keeps the UGC
// subset of HTML; plain text loses all tags but keeps its characters.
func (s *Service) sanitize(text string, rich bool) string {
	if rich {
		return s.richPolicy.Sanitize(text)
	}
	return html.UnescapeString(s.plainPolicy.Sanitize(text))
}
