// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Core palette. Adaptive pairs keep the view readable on light terminals.
var (
	accentColor = lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#9D79F6"}
	subtleColor = lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#8A8A8A"}
	userColor   = lipgloss.AdaptiveColor{Light: "#005F87", Dark: "#5FD7FF"}
	dangerColor = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF5F5F"}
	borderColor = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#3A3A3A"}
)

// Theme holds the styled components for the application, adjusted to the
// terminal's color capability.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header and status
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	Shortcut  lipgloss.Style

	// Message rendering
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	Timestamp      lipgloss.Style
	Reasoning      lipgloss.Style
	Citation       lipgloss.Style
	ImageRef       lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	Placeholder    lipgloss.Style

	// Transient states
	Spinner     lipgloss.Style
	ErrorBanner lipgloss.Style
}

// NewTheme builds a theme for the detected terminal.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	isDark := termenv.HasDarkBackground()

	return &Theme{
		IsDark:       isDark,
		ColorProfile: profile,

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(subtleColor).
			Padding(0, 1),
		Shortcut: lipgloss.NewStyle().
			Foreground(accentColor),

		UserLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(userColor),
		AssistantLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor),
		Timestamp: lipgloss.NewStyle().
			Foreground(subtleColor),
		Reasoning: lipgloss.NewStyle().
			Italic(true).
			Foreground(subtleColor).
			PaddingLeft(2),
		Citation: lipgloss.NewStyle().
			Foreground(subtleColor).
			PaddingLeft(2),
		ImageRef: lipgloss.NewStyle().
			Foreground(userColor).
			PaddingLeft(2),

		InputContainer: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1),
		Placeholder: lipgloss.NewStyle().
			Foreground(subtleColor),

		Spinner: lipgloss.NewStyle().
			Foreground(accentColor),
		ErrorBanner: lipgloss.NewStyle().
			Bold(true).
			Foreground(dangerColor).
			Padding(0, 1),
	}
}
