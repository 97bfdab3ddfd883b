// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
)

// DefaultCodeStyle is the chroma style used when none is configured.
const DefaultCodeStyle = "monokai"

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// IsCodeStyle reports whether name is a registered chroma style.
func IsCodeStyle(name string) bool {
	_, ok := chromaStyles.Registry[strings.ToLower(name)]
	return ok
}

// CodeStyles lists the registered chroma style names.
func CodeStyles() []string {
	return chromaStyles.Names()
}

// Highlight renders code with ANSI colors. An unknown language is guessed
// from the code; an unknown style falls back to DefaultCodeStyle. The
// input is returned unchanged if highlighting fails.
func Highlight(code, language, styleName string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get(DefaultCodeStyle)
	if IsCodeStyle(styleName) {
		style = chromaStyles.Get(styleName)
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}

// =============================================================================
// MARKDOWN
// =============================================================================

// MarkdownRenderer renders markdown for the terminal, falling back to the
// raw text when rendering is unavailable.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	style    string
	width    int
}

// NewMarkdownRenderer creates a renderer. style is a glamour standard style
// name ("dark", "light", "notty", ...) or "auto".
func NewMarkdownRenderer(style string, width int) *MarkdownRenderer {
	if width <= 0 {
		width = 80
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		r = nil
	}
	return &MarkdownRenderer{renderer: r, style: style, width: width}
}

// Width returns the wrap width.
func (m *MarkdownRenderer) Width() int {
	return m.width
}

// Render renders md, returning it unchanged on failure.
func (m *MarkdownRenderer) Render(md string) string {
	if m == nil || m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}
