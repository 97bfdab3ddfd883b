// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/quill-tui/internal/content"
	"github.com/jeranaias/quill-tui/internal/dialog"
	"github.com/jeranaias/quill-tui/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the dialog.
func (m *Model) View() string {
	if m.ctrl.Closed() {
		return ""
	}

	sections := []string{m.renderHeader()}
	if banner := m.renderBanner(); banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections,
		m.renderTextField("Prompt", fieldPrompt, m.prompt.View()),
		m.renderSelectors(),
		m.renderTextField("Source", fieldSource, m.source.View()),
		m.renderResponse(),
		m.renderActions(),
		m.renderHelp(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHeader() string {
	opts := m.ctrl.Options()
	title := m.theme.HeaderTitle.Render("quill - content creation")

	target := opts.Key().String()
	if opts.RichText {
		target += " (rich text)"
	}
	room := m.width - lipgloss.Width(title) - 5
	if room < 10 {
		room = 10
	}
	path := m.theme.HeaderPath.Render(runewidth.Truncate(target, room, "…"))
	return m.theme.Header.Width(m.width).Render(title + "  " + path)
}

func (m *Model) renderBanner() string {
	banner := m.ctrl.Banner()
	if banner == "" {
		return ""
	}
	text := runewidth.Truncate(banner, m.width-4, "…")
	if banner == dialog.LengthWarning {
		return m.theme.BannerWarning.Render(styles.StatusIndicators.Warning + " " + text)
	}
	return m.theme.BannerError.Render(styles.StatusIndicators.Error + " " + text)
}

func (m *Model) label(name string, f field) string {
	if m.focus == f {
		return m.theme.FieldLabelFocused.Render("> " + name)
	}
	return m.theme.FieldLabel.Render("  " + name)
}

func (m *Model) box(f field) lipgloss.Style {
	if m.focus == f {
		return m.theme.FieldBoxFocused
	}
	return m.theme.FieldBox
}

func (m *Model) renderTextField(name string, f field, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, m.label(name, f), m.box(f).Render(body))
}

func (m *Model) renderSelectors() string {
	lib := m.ctrl.Library()
	width := (m.width - 6) / 3
	if width < 12 {
		width = 12
	}
	parts := []string{
		m.renderSelector("Predefined", fieldPredefined, lib.PromptTitle(m.ctrl.PredefinedPrompt()), width),
		m.renderSelector("Content", fieldContent, selectorTitle(m.ctrl.ContentSelector()), width),
		m.renderSelector("Length", fieldTextLength, lib.TextLengthTitle(m.ctrl.TextLength()), width),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderSelector(name string, f field, value string, width int) string {
	labelText := name + ": "
	room := width - runewidth.StringWidth(labelText) - 4
	if room < 3 {
		room = 3
	}
	value = runewidth.Truncate(value, room, "…")

	valueStyle := m.theme.SelectorValue
	if m.focus == f {
		valueStyle = m.theme.SelectorFocused
	}
	arrowL := m.theme.SelectorArrow.Render("‹")
	arrowR := m.theme.SelectorArrow.Render("›")
	cell := m.label(labelText, f) + arrowL + valueStyle.Render(value) + arrowR
	return lipgloss.NewStyle().Width(width).Render(cell)
}

// selectorTitle names a content selector value for display.
func selectorTitle(v string) string {
	switch v {
	case content.SelectorWidget:
		return "field"
	case content.SelectorLastOutput:
		return "last output"
	case "":
		return content.SelectorNone
	default:
		return v
	}
}

func (m *Model) renderResponse() string {
	name := "Response"
	body := m.response.View()
	if m.showPreview {
		name = "Response (preview)"
		body = m.preview.View()
	}
	return m.renderTextField(name, fieldResponse, body)
}

func (m *Model) renderActions() string {
	en := m.ctrl.Enablement()
	button := func(label string, enabled bool) string {
		if enabled {
			return m.theme.Button.Render("[" + label + "]")
		}
		return m.theme.ButtonDisabled.Render("[" + label + "]")
	}
	parts := []string{
		button("Back", en.Back),
		button("Forward", en.Forward),
		button("Clear history", en.Reset),
		button("Generate", !m.ctrl.Loading()),
		button("Stop", m.ctrl.Loading()),
	}
	line := strings.Join(parts, " ")
	if m.ctrl.Loading() {
		line += "  " + m.spinner.View() + m.theme.LoadingText.Render(" generating...")
	}
	return line
}

func (m *Model) renderHelp() string {
	return m.theme.StatusBar.Width(m.width).Render(m.help.View(m.keys))
}
