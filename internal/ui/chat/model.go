// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/stream"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme *styles.Theme

	width  int
	height int

	// Streaming pipeline. The controller owns the exchange; the bridge
	// is the only read path while a response streams.
	controller *stream.Controller
	bridge     *stream.Bridge
	events     chan stream.Event
	unsub      func()

	// Frame pacing
	frameEvery time.Duration
	ticking    bool

	// Rendered transcript cache. Committed messages render through
	// glamour once; the live tail re-renders raw each frame.
	transcript string
	renderer   *glamour.TermRenderer

	// UI components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	keys     KeyMap

	errText string
	ready   bool
}

// New creates the chat view over an already-wired controller and bridge.
func New(controller *stream.Controller, bridge *stream.Bridge, cfg *config.Config, theme *styles.Theme) Model {
	input := textarea.New()
	input.Placeholder = "Ask anything..."
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		renderer = nil // fall back to raw text
	}

	events := make(chan stream.Event, 16)
	unsub := bridge.Subscribe(func(ev stream.Event) {
		// Drop rather than block: the stream goroutine must never wait
		// on the render loop.
		select {
		case events <- ev:
		default:
		}
	})

	return Model{
		theme:      theme,
		controller: controller,
		bridge:     bridge,
		events:     events,
		unsub:      unsub,
		frameEvery: frameInterval(cfg.Stream.MaxFPS),
		renderer:   renderer,
		input:      input,
		spinner:    sp,
		keys:       DefaultKeyMap(),
	}
}

// Init starts event forwarding.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitEventCmd(m.events), textarea.Blink)
}

// streaming reports whether a response is in flight.
func (m Model) streaming() bool {
	switch m.controller.State() {
	case stream.StateRequesting, stream.StateStreaming, stream.StateCommitting:
		return true
	}
	return false
}
