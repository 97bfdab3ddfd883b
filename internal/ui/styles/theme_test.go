// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

// =============================================================================
// THEME TESTS
// =============================================================================

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}
	for name, rendered := range map[string]string{
		"Header":        theme.Header.Render("x"),
		"FieldBox":      theme.FieldBox.Render("x"),
		"BannerWarning": theme.BannerWarning.Render("x"),
		"StatusBar":     theme.StatusBar.Render("x"),
	} {
		if !strings.Contains(rendered, "x") {
			t.Errorf("%s style lost its content: %q", name, rendered)
		}
	}
}

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	theme := NewTheme()
	for _, tt := range tests {
		theme.SetSize(tt.width, 30)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("GetLayoutMode() at width %d = %v, want %v", tt.width, got, tt.want)
		}
	}
}

// =============================================================================
// STATUS RENDERING TESTS
// =============================================================================

func TestRenderStatusIndicators(t *testing.T) {
	tests := []struct {
		name      string
		rendered  string
		indicator string
	}{
		{"success", RenderSuccess("saved"), StatusIndicators.Success},
		{"error", RenderError("failed"), StatusIndicators.Error},
		{"warning", RenderWarning("careful"), StatusIndicators.Warning},
		{"info", RenderInfo("note"), StatusIndicators.Info},
	}
	for _, tt := range tests {
		if !strings.Contains(tt.rendered, tt.indicator) {
			t.Errorf("%s: %q lacks indicator %q", tt.name, tt.rendered, tt.indicator)
		}
	}
}

// =============================================================================
// HIGHLIGHT AND MARKDOWN TESTS
// =============================================================================

func TestIsCodeStyle(t *testing.T) {
	if !IsCodeStyle("monokai") || !IsCodeStyle("dracula") {
		t.Error("expected built-in chroma styles to be known")
	}
	if IsCodeStyle("no-such-style") {
		t.Error("unknown style reported as known")
	}
	if len(CodeStyles()) == 0 {
		t.Error("CodeStyles() is empty")
	}
}

func TestHighlight(t *testing.T) {
	out := Highlight("<p>Hello</p>", "html", "no-such-style")
	if !strings.Contains(out, "Hello") {
		t.Errorf("Highlight() lost text: %q", out)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("Highlight() produced no ANSI sequences: %q", out)
	}
}

func TestMarkdownRenderer(t *testing.T) {
	r := NewMarkdownRenderer("notty", 40)
	if r.Width() != 40 {
		t.Errorf("Width() = %d, want 40", r.Width())
	}
	out := r.Render("# Title\n\nSome *text*.")
	if !strings.Contains(out, "Title") || !strings.Contains(out, "text") {
		t.Errorf("Render() = %q", out)
	}

	var nilRenderer *MarkdownRenderer
	if got := nilRenderer.Render("raw"); got != "raw" {
		t.Errorf("nil renderer Render() = %q, want raw", got)
	}
}
