// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Frame pacing for streaming renders. Re-rendering on every delta causes
// flicker and burns CPU at high token rates; instead the view re-reads
// the bridge on a fixed tick while streaming and stops ticking when idle.

const (
	// defaultMaxFPS caps streaming re-renders.
	defaultMaxFPS = 30

	// maxAllowedFPS is the hard ceiling; faster than terminal refresh is
	// wasted work.
	maxAllowedFPS = 60
)

// frameInterval converts a frame rate to a tick interval, clamping
// nonsense values to the defaults.
func frameInterval(maxFPS int) time.Duration {
	if maxFPS <= 0 || maxFPS > maxAllowedFPS {
		maxFPS = defaultMaxFPS
	}
	return time.Second / time.Duration(maxFPS)
}

// frameTickCmd schedules the next streaming frame.
func frameTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return FrameTickMsg{Time: t}
	})
}
