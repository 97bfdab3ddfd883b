// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package editor

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quill-tui/internal/dialog"
)

// eventBuffer absorbs bursts of partial responses between frames.
const eventBuffer = 256

// Bridge carries controller events into the Bubble Tea loop. Post is handed
// to dialog.New; the Model drains the channel with a listening command.
type Bridge struct {
	events chan dialog.Event
}

// NewBridge creates a bridge.
func NewBridge() *Bridge {
	return &Bridge{events: make(chan dialog.Event, eventBuffer)}
}

// Post queues an event. Safe for concurrent use.
func (b *Bridge) Post(ev dialog.Event) {
	b.events <- ev
}

// eventMsg wraps a controller event as a tea.Msg.
type eventMsg struct {
	event dialog.Event
}

// listen waits for the next controller event.
func (b *Bridge) listen() tea.Cmd {
	return func() tea.Msg {
		return eventMsg{event: <-b.events}
	}
}
