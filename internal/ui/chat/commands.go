// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/stream"
)

// waitEventCmd blocks on the bridge event channel. Re-issued after every
// delivery so the subscription stays live for the whole session.
func waitEventCmd(events <-chan stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return BridgeEventMsg{Event: ev}
	}
}
