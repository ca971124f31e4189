// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/stream"
)

// Update handles one Bubble Tea message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.unsub()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Cancel):
			if m.streaming() {
				m.controller.Cancel()
				return m, nil
			}

		case key.Matches(msg, m.keys.Submit):
			if m.streaming() {
				return m, nil // one exchange at a time
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.errText = ""
			m.controller.Submit(text)
			m.rebuildTranscript()
			m.viewport.GotoBottom()
			return m, tea.Batch(m.spinner.Tick, m.startTicking())
		}

	case BridgeEventMsg:
		cmds = append(cmds, m.handleBridgeEvent(msg.Event))
		cmds = append(cmds, waitEventCmd(m.events))

	case FrameTickMsg:
		if m.streaming() {
			m.renderLiveTail()
			cmds = append(cmds, frameTickCmd(m.frameEvery))
		} else {
			m.ticking = false
		}

	case spinner.TickMsg:
		if m.controller.State() == stream.StateRequesting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleBridgeEvent reacts to structural stream changes.
func (m *Model) handleBridgeEvent(ev stream.Event) tea.Cmd {
	switch ev.Kind {
	case stream.EventStart:
		return m.startTicking()

	case stream.EventCitations:
		// First citation arrived; next frame picks it up via Peek.
		return nil

	case stream.EventEnd:
		// The response is committed history now; re-render it through
		// glamour and drop the live tail.
		m.rebuildTranscript()
		m.viewport.GotoBottom()
		return nil

	case stream.EventReset:
		if errText := m.controller.LastError(); errText != "" {
			m.errText = errText
		}
		m.rebuildTranscript()
		m.viewport.GotoBottom()
		return nil
	}
	return nil
}

// startTicking begins the frame tick unless one is already scheduled.
func (m *Model) startTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return frameTickCmd(m.frameEvery)
}

// layout recomputes component sizes after a resize.
func (m *Model) layout() {
	headerHeight := 1
	statusHeight := 1
	inputHeight := 5 // bordered 3-line textarea

	vpHeight := m.height - headerHeight - statusHeight - inputHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(m.width - 4)

	m.rebuildTranscript()
}

// renderLiveTail refreshes the viewport with committed history plus the
// current Peek state.
func (m *Model) renderLiveTail() {
	m.viewport.SetContent(m.transcript + m.renderStreaming())
	m.viewport.GotoBottom()
}
