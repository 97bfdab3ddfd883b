// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package editor renders the content creation dialog as a Bubble Tea
// program on top of the dialog controller.
package editor

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quill-tui/internal/content"
	"github.com/jeranaias/quill-tui/internal/dialog"
	"github.com/jeranaias/quill-tui/internal/ui/styles"
)

// field identifies a focusable dialog element.
type field int

const (
	fieldPrompt field = iota
	fieldPredefined
	fieldContent
	fieldSource
	fieldTextLength
	fieldResponse
	fieldCount
)

func (f field) isSelector() bool {
	return f == fieldPredefined || f == fieldContent || f == fieldTextLength
}

// Settings tune the rendering.
type Settings struct {
	// MarkdownStyle is the glamour style of the plain text preview.
	MarkdownStyle string
	// CodeStyle is the chroma style of the rich text preview.
	CodeStyle string
	// Preview starts with the preview shown instead of the raw response.
	Preview bool
}

// Model is the Bubble Tea model of the dialog.
type Model struct {
	ctrl     *dialog.Controller
	bridge   *Bridge
	theme    *styles.Theme
	settings Settings

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	prompt   textarea.Model
	source   textarea.Model
	response textarea.Model
	preview  viewport.Model
	markdown *styles.MarkdownRenderer

	focus       field
	showPreview bool
	width       int
	height      int
}

// New creates the model. ctrl must have been created with bridge.Post as
// its event sink.
func New(ctrl *dialog.Controller, bridge *Bridge, theme *styles.Theme, settings Settings) *Model {
	if theme == nil {
		theme = styles.NewTheme()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := &Model{
		ctrl:        ctrl,
		bridge:      bridge,
		theme:       theme,
		settings:    settings,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		prompt:      newTextArea("Describe what to generate..."),
		source:      newTextArea("Source text the prompt works on"),
		response:    newTextArea("The generated text appears here"),
		preview:     viewport.New(60, 8),
		showPreview: settings.Preview,
		width:       80,
		height:      30,
	}
	m.prompt.Focus()
	m.syncFromController()
	m.layout()
	return m
}

func newTextArea(placeholder string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Prompt = ""
	return ta
}

// Controller returns the underlying controller.
func (m *Model) Controller() *dialog.Controller {
	return m.ctrl
}

// Init starts listening for controller events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.bridge.listen())
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		return m, nil

	case eventMsg:
		wasLoading := m.ctrl.Loading()
		m.ctrl.Handle(msg.event)
		m.syncFromController()
		cmds := []tea.Cmd{m.bridge.listen()}
		if !wasLoading && m.ctrl.Loading() {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !m.ctrl.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, m.updateFocused(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.ctrl.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.ctrl.Loading() {
			m.ctrl.Stop()
			return m, nil
		}
		m.ctrl.Cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		m.ctrl.Submit()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Generate):
		if m.ctrl.Generate() {
			m.syncFromController()
			return m, m.spinner.Tick
		}
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		m.ctrl.Stop()
		return m, nil

	case key.Matches(msg, m.keys.ResetFields):
		m.ctrl.ResetFields()
		m.syncFromController()
		return m, nil

	case key.Matches(msg, m.keys.Back):
		m.ctrl.Back()
		m.syncFromController()
		return m, nil

	case key.Matches(msg, m.keys.Forward):
		m.ctrl.Forward()
		m.syncFromController()
		return m, nil

	case key.Matches(msg, m.keys.ResetHistory):
		m.ctrl.ResetHistory()
		m.syncFromController()
		return m, nil

	case key.Matches(msg, m.keys.Preview):
		m.showPreview = !m.showPreview
		m.refreshPreview()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.NextField):
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil

	case key.Matches(msg, m.keys.PrevField):
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	}

	if m.focus.isSelector() {
		switch {
		case key.Matches(msg, m.keys.OptionNext):
			m.cycleSelector(1)
		case key.Matches(msg, m.keys.OptionPrev):
			m.cycleSelector(-1)
		}
		return m, nil
	}

	if m.focus == fieldResponse && m.showPreview {
		var cmd tea.Cmd
		m.preview, cmd = m.preview.Update(msg)
		return m, cmd
	}

	return m, m.updateFocused(msg)
}

// updateFocused passes msg to the focused text area and reports edits to
// the controller.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.focus {
	case fieldPrompt:
		before := m.prompt.Value()
		m.prompt, cmd = m.prompt.Update(msg)
		if v := m.prompt.Value(); v != before {
			m.ctrl.SetPrompt(v)
		}
	case fieldSource:
		before := m.source.Value()
		m.source, cmd = m.source.Update(msg)
		if v := m.source.Value(); v != before {
			m.ctrl.SetSource(v)
		}
	case fieldResponse:
		before := m.response.Value()
		m.response, cmd = m.response.Update(msg)
		if v := m.response.Value(); v != before {
			m.ctrl.SetResponse(v)
			m.refreshPreview()
		}
	}
	return cmd
}

func (m *Model) setFocus(f field) {
	m.focus = f
	m.prompt.Blur()
	m.source.Blur()
	m.response.Blur()
	switch f {
	case fieldPrompt:
		m.prompt.Focus()
	case fieldSource:
		m.source.Focus()
	case fieldResponse:
		if !m.showPreview {
			m.response.Focus()
		}
	}
}

// cycleSelector moves the focused selector by step options.
func (m *Model) cycleSelector(step int) {
	lib := m.ctrl.Library()
	switch m.focus {
	case fieldPredefined:
		values := lib.PromptValues()
		m.ctrl.SelectPredefinedPrompt(cycle(values, m.ctrl.PredefinedPrompt(), step))
	case fieldContent:
		m.ctrl.SelectContent(cycle(content.Selectors, m.ctrl.ContentSelector(), step))
	case fieldTextLength:
		values := make([]string, len(lib.TextLengths))
		for i, t := range lib.TextLengths {
			values[i] = t.Value
		}
		m.ctrl.SetTextLength(cycle(values, m.ctrl.TextLength(), step))
	}
	m.syncFromController()
}

// cycle returns the value step positions after current, wrapping around.
// An unknown current value starts from the first option.
func cycle(values []string, current string, step int) string {
	if len(values) == 0 {
		return current
	}
	idx := -1
	for i, v := range values {
		if v == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return values[0]
	}
	n := len(values)
	return values[((idx+step)%n+n)%n]
}

// syncFromController copies controller fields into the text areas.
func (m *Model) syncFromController() {
	setIfChanged(&m.prompt, m.ctrl.Prompt())
	setIfChanged(&m.source, m.ctrl.Source())
	if setIfChanged(&m.response, m.ctrl.Response()) {
		m.refreshPreview()
	}
}

func setIfChanged(ta *textarea.Model, v string) bool {
	if ta.Value() == v {
		return false
	}
	ta.SetValue(v)
	return true
}

func (m *Model) refreshPreview() {
	if !m.showPreview {
		return
	}
	m.preview.SetContent(m.renderPreview(m.ctrl.Response()))
	m.preview.GotoBottom()
}

func (m *Model) renderPreview(text string) string {
	if text == "" {
		return m.theme.Placeholder.Render("Nothing generated yet")
	}
	if m.ctrl.Options().RichText {
		return styles.Highlight(text, "html", m.settings.CodeStyle)
	}
	return m.markdown.Render(text)
}

// layout sizes the text areas for the current window.
func (m *Model) layout() {
	inner := m.width - 4
	if inner < 20 {
		inner = 20
	}

	// header, banner, labels, selectors, buttons, loading line, help and borders
	fixed := 18
	if m.help.ShowAll {
		fixed += 4
	}
	avail := m.height - fixed
	if avail < 6 {
		avail = 6
	}
	promptH := 3
	sourceH := (avail - promptH) / 2
	responseH := avail - promptH - sourceH

	m.prompt.SetWidth(inner)
	m.prompt.SetHeight(promptH)
	m.source.SetWidth(inner)
	m.source.SetHeight(sourceH)
	m.response.SetWidth(inner)
	m.response.SetHeight(responseH)
	m.preview.Width = inner
	m.preview.Height = responseH
	m.help.Width = m.width

	if m.markdown == nil || m.markdown.Width() != inner {
		m.markdown = styles.NewMarkdownRenderer(m.settings.MarkdownStyle, inner)
	}
	m.refreshPreview()
}
