// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package generate

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultMaxTokens is used when the text length gives no explicit limit.
const DefaultMaxTokens = 400

// RichTextInstruction is appended to the prompt for rich text fields.
const RichTextInstruction = "Create HTML and begin the text with <p>"

var textLengthPattern = regexp.MustCompile(`^\s*(\d+)\s*\|\s*(.*)$`)

// Request is a content creation request.
type Request struct {
	// Prompt is the user's instruction. Required.
	Prompt string `json:"prompt"`
	// TextLength is either "N|instruction", limiting the output to N tokens
	// and prefixing the instruction to the prompt, or free text that is
	// prefixed as is.
	TextLength string `json:"textLength,omitempty"`
	// InputText is the source text the prompt operates on.
	InputText string `json:"inputText,omitempty"`
	// InputPath names content to retrieve as source text. Mutually
	// exclusive with InputText.
	InputPath string `json:"inputPath,omitempty"`
	// RichText asks for HTML output.
	RichText bool `json:"richText,omitempty"`
	// Streaming is honored by the HTTP service; the Service always streams.
	Streaming bool `json:"streaming,omitempty"`
}

// Validate checks the request for missing or conflicting fields.
func (r Request) Validate() error {
	if isBlank(r.Prompt) {
		return ErrPromptRequired
	}
	if !isBlank(r.InputPath) && !isBlank(r.InputText) {
		return ErrConflictingInput
	}
	return nil
}

// Prompt is the prompt sent to the backend.
type Prompt struct {
	Text      string
	MaxTokens int
}

// BuildPrompt combines the request's text length directive, prompt and
// rich text flag into the final prompt and token limit.
func BuildPrompt(r Request) Prompt {
	p := Prompt{Text: r.Prompt, MaxTokens: DefaultMaxTokens}

	prefix := r.TextLength
	if m := textLengthPattern.FindStringSubmatch(prefix); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			p.MaxTokens = n
		}
		prefix = m[2]
	}
	if !isBlank(prefix) {
		p.Text = prefix + "\n\n" + p.Text
	}
	if r.RichText {
		p.Text += "\n\n" + RichTextInstruction
	}
	return p
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
