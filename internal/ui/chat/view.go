// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/stream"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete chat layout: header, transcript viewport,
// input area, status bar.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// renderHeader shows the conversation title and model.
func (m Model) renderHeader() string {
	title := "relay"
	if conv := m.controller.Conversation(); conv != nil {
		title = conv.Title
		if conv.Model != "" {
			title += "  " + m.theme.Timestamp.Render(conv.Model)
		}
	}
	return m.theme.Header.Render(title)
}

// renderStatusBar shows errors, streaming state, or key hints.
func (m Model) renderStatusBar() string {
	if m.errText != "" {
		return m.theme.ErrorBanner.Render(m.errText)
	}

	switch m.controller.State() {
	case stream.StateRequesting:
		return m.theme.StatusBar.Render(m.spinner.View() + " waiting for response  " +
			m.theme.Shortcut.Render("esc") + " to stop")
	case stream.StateStreaming, stream.StateCommitting:
		return m.theme.StatusBar.Render("streaming  " +
			m.theme.Shortcut.Render("esc") + " to stop")
	default:
		return m.theme.StatusBar.Render(
			m.theme.Shortcut.Render("enter") + " send  " +
				m.theme.Shortcut.Render("C-c") + " quit")
	}
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// rebuildTranscript re-renders committed history. Called on structural
// changes only, never per frame; glamour rendering is too expensive for
// the frame tick.
func (m *Model) rebuildTranscript() {
	conv := m.controller.Conversation()
	if conv == nil {
		m.transcript = ""
		m.viewport.SetContent("")
		return
	}

	var b strings.Builder
	for _, msg := range conv.Messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	m.transcript = b.String()
	m.viewport.SetContent(m.transcript + m.renderStreaming())
}

// renderMessage renders one committed message.
func (m *Model) renderMessage(msg *model.Message) string {
	var b strings.Builder

	label := m.theme.UserLabel
	if msg.Role == model.RoleAssistant {
		label = m.theme.AssistantLabel
	}
	b.WriteString(label.Render(msg.Role.DisplayName()))
	b.WriteString(" ")
	b.WriteString(m.theme.Timestamp.Render(msg.Timestamp.Format("15:04")))
	b.WriteString("\n")

	if msg.HasReasoning() {
		b.WriteString(m.theme.Reasoning.Render(msg.Reasoning))
		b.WriteString("\n")
	}

	content := msg.Content
	if msg.Role == model.RoleAssistant && m.renderer != nil {
		if rendered, err := m.renderer.Render(content); err == nil {
			content = strings.TrimRight(rendered, "\n") + "\n"
		}
	}
	b.WriteString(content)
	b.WriteString("\n")

	for _, img := range msg.Images {
		b.WriteString(m.theme.ImageRef.Render("[image] " + img.URL))
		b.WriteString("\n")
	}
	b.WriteString(m.renderCitations(msg.Citations))

	return b.String()
}

// renderStreaming renders the live tail from the bridge's Peek state.
// Raw text, no glamour: partial markdown renders badly and the frame
// tick is hot.
func (m *Model) renderStreaming() string {
	if !m.streaming() {
		return ""
	}

	snap := m.bridge.Peek()
	var b strings.Builder

	b.WriteString(m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName()))
	b.WriteString("\n")

	if snap.Reasoning != "" {
		b.WriteString(m.theme.Reasoning.Render(snap.Reasoning))
		b.WriteString("\n")
	}
	if snap.Content != "" {
		b.WriteString(lipgloss.NewStyle().Width(m.width - 2).Render(snap.Content))
		b.WriteString("\n")
	}
	for _, img := range snap.Images {
		b.WriteString(m.theme.ImageRef.Render("[image] " + img.URL))
		b.WriteString("\n")
	}
	b.WriteString(m.renderCitations(snap.Citations))

	return b.String()
}

// renderCitations renders the sources list, if any.
func (m *Model) renderCitations(citations []model.Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.theme.Citation.Render("Sources:"))
	b.WriteString("\n")
	for _, c := range citations {
		line := c.URL
		if c.Title != "" {
			line = c.Title + " (" + c.URL + ")"
		}
		b.WriteString(m.theme.Citation.Render("- " + line))
		b.WriteString("\n")
	}
	return b.String()
}
