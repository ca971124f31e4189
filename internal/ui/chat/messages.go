// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/relay-tui/internal/stream"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// FrameTickMsg drives one render frame while a response is streaming.
type FrameTickMsg struct {
	Time time.Time
}

// BridgeEventMsg wraps one structural event from the stream bridge.
type BridgeEventMsg struct {
	Event stream.Event
}
