// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// LIMITS
// =============================================================================

const (
	// KeywordInputWords caps the words of a text sent for keyword extraction.
	KeywordInputWords = 1000

	// MaxKeywords caps the number of keywords returned.
	MaxKeywords = 20

	keywordsMaxTokens = 200
)

// KeywordsPrompt asks for one keyword per line.
const KeywordsPrompt = "Create a list of up to 20 keywords that describe the text above, " +
	"most important first. Answer with one keyword or short key phrase per line and nothing else."

// =============================================================================
// REQUESTS
// =============================================================================

// PromptRequest runs a free prompt, optionally on a text.
type PromptRequest struct {
	Prompt    string `json:"prompt"`
	Text      string `json:"text,omitempty"`
	MaxTokens int    `json:"maxtokens,omitempty"`
}

// Validate checks that a prompt is given.
func (r PromptRequest) Validate() error {
	if isBlank(r.Prompt) {
		return ErrPromptRequired
	}
	return nil
}

// TranslateRequest translates Text, or the content at Path when Text is
// blank, from SourceLanguage into TargetLanguage.
type TranslateRequest struct {
	Text           string `json:"text,omitempty"`
	Path           string `json:"path,omitempty"`
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
	RichText       bool   `json:"richText,omitempty"`
	Streaming      bool   `json:"streaming,omitempty"`
}

// Validate checks for a text source and both languages.
func (r TranslateRequest) Validate() error {
	switch {
	case isBlank(r.Text) && isBlank(r.Path):
		return ErrTextRequired
	case isBlank(r.SourceLanguage):
		return ErrSourceLanguage
	case isBlank(r.TargetLanguage):
		return ErrTargetLanguage
	}
	return nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Keywords extracts up to MaxKeywords keywords from text. Long texts are
// shortened to their beginning and end first.
func (s *Service) Keywords(ctx context.Context, text string) ([]string, error) {
	if isBlank(text) {
		return nil, ErrTextRequired
	}
	if s.backend == nil {
		return nil, ErrNoBackend
	}
	messages := []Message{
		{Role: "system", Content: s.systemPrompt},
		{Role: "user", Content: Shorten(text, KeywordInputWords)},
		{Role: "user", Content: KeywordsPrompt},
	}
	res, err := s.run(ctx, "keywords", messages, keywordsMaxTokens, false, nil)
	if err != nil {
		return nil, err
	}
	return ParseKeywords(res.Text), nil
}

// Description writes a description of text. maxWords <= 0 leaves the
// length to the model.
func (s *Service) Description(ctx context.Context, text string, maxWords int) (string, error) {
	if isBlank(text) {
		return "", ErrTextRequired
	}
	if s.backend == nil {
		return "", ErrNoBackend
	}
	prompt := "Create a description of the text above"
	maxTokens := DefaultMaxTokens
	if maxWords > 0 {
		prompt += fmt.Sprintf(" with at most %d words", maxWords)
		maxTokens = maxWords*3 + 20
	}
	prompt += ". Answer with the description only."

	messages := []Message{
		{Role: "system", Content: s.systemPrompt},
		{Role: "user", Content: text},
		{Role: "user", Content: prompt},
	}
	res, err := s.run(ctx, "description", messages, maxTokens, false, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

// ExecutePrompt runs req.Prompt, on req.Text when given.
func (s *Service) ExecutePrompt(ctx context.Context, req PromptRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.backend == nil {
		return nil, ErrNoBackend
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	op := "prompt"
	if !isBlank(req.Text) {
		op = "prompt-on-text"
	}
	return s.run(ctx, op, s.messages(req.Prompt, req.Text), maxTokens, false, nil)
}

// Translate translates the request's text. onPartial may be nil.
func (s *Service) Translate(ctx context.Context, req TranslateRequest, onPartial PartialFunc) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.backend == nil {
		return nil, ErrNoBackend
	}

	text := req.Text
	if isBlank(text) {
		if s.retriever == nil {
			return nil, &Error{Type: ErrTypeContent, Message: "No resource found at " + req.Path}
		}
		retrieved, err := s.retriever.Retrieve(ctx, req.Path)
		if err != nil {
			return nil, &Error{Type: ErrTypeContent, Message: "No resource found at " + req.Path, Cause: err}
		}
		text = retrieved
	}

	prompt := fmt.Sprintf("Translate the text above from %s to %s. Answer with the translation only.",
		req.SourceLanguage, req.TargetLanguage)
	if req.RichText {
		prompt += " Keep the HTML markup unchanged."
	}
	// Room for a translation somewhat longer than its source.
	maxTokens := DefaultMaxTokens
	if n := utf8.RuneCountInString(text); n > maxTokens {
		maxTokens = n
	}
	return s.run(ctx, "translate", s.messages(prompt, text), maxTokens, req.RichText, onPartial)
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

// Shorten keeps the first and last words of a text longer than maxWords,
// joined by " ... ". Texts within the limit are returned unchanged.
func Shorten(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return text
	}
	head := maxWords / 2
	tail := (maxWords - 1) / 2
	if head == 0 {
		head = 1
	}
	parts := append([]string{}, words[:head]...)
	parts = append(parts, "...")
	parts = append(parts, words[len(words)-tail:]...)
	return strings.Join(parts, " ")
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)

// ParseKeywords splits a model answer into keywords. It accepts one keyword
// per line or a comma separated line, drops list markers and duplicates,
// and keeps at most MaxKeywords.
func ParseKeywords(answer string) []string {
	lines := strings.Split(strings.TrimSpace(answer), "\n")
	if len(lines) == 1 {
		lines = strings.Split(lines[0], ",")
	}

	keywords := []string{}
	seen := make(map[string]bool)
	for _, line := range lines {
		kw := listMarker.ReplaceAllString(line, "")
		kw = strings.Trim(strings.TrimSpace(kw), `"'.;`)
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[strings.ToLower(kw)] {
			continue
		}
		seen[strings.ToLower(kw)] = true
		keywords = append(keywords, kw)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}
