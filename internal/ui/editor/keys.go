// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import "github.com/charmbracelet/bubbles/key"

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines the keyboard bindings of the dialog. Bindings avoid the
// control keys the text areas use for editing.
type KeyMap struct {
	NextField    key.Binding
	PrevField    key.Binding
	OptionNext   key.Binding
	OptionPrev   key.Binding
	Generate     key.Binding
	Stop         key.Binding
	ResetFields  key.Binding
	Back         key.Binding
	Forward      key.Binding
	ResetHistory key.Binding
	Preview      key.Binding
	Submit       key.Binding
	Cancel       key.Binding
	Quit         key.Binding
	Help         key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-Tab", "previous field"),
		),
		OptionNext: key.NewBinding(
			key.WithKeys("right", "enter", " "),
			key.WithHelp("→", "next option"),
		),
		OptionPrev: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "previous option"),
		),
		Generate: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("C-g", "generate"),
		),
		Stop: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "stop"),
		),
		ResetFields: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "reset fields"),
		),
		Back: key.NewBinding(
			key.WithKeys("alt+left", "alt+h"),
			key.WithHelp("M-←", "history back"),
		),
		Forward: key.NewBinding(
			key.WithKeys("alt+right", "alt+l"),
			key.WithHelp("M-→", "history forward"),
		),
		ResetHistory: key.NewBinding(
			key.WithKeys("alt+r"),
			key.WithHelp("M-r", "clear history"),
		),
		Preview: key.NewBinding(
			key.WithKeys("alt+p"),
			key.WithHelp("M-p", "toggle preview"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "accept"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop / cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "toggle help"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Generate, k.Submit, k.Back, k.Forward, k.Cancel, k.Help}
}

// FullHelp returns all bindings, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextField, k.PrevField, k.OptionNext, k.OptionPrev},
		{k.Generate, k.Stop, k.ResetFields, k.Preview},
		{k.Back, k.Forward, k.ResetHistory},
		{k.Submit, k.Cancel, k.Quit, k.Help},
	}
}
