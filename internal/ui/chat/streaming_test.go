// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
	"time"
)

// TestFrameInterval verifies FPS-to-interval conversion and clamping.
func TestFrameInterval(t *testing.T) {
	tests := []struct {
		name string
		fps  int
		want time.Duration
	}{
		{name: "default 30fps", fps: 30, want: time.Second / 30},
		{name: "low fps", fps: 10, want: 100 * time.Millisecond},
		{name: "ceiling", fps: 60, want: time.Second / 60},
		{name: "zero clamps to default", fps: 0, want: time.Second / 30},
		{name: "negative clamps to default", fps: -5, want: time.Second / 30},
		{name: "over ceiling clamps to default", fps: 240, want: time.Second / 30},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := frameInterval(tc.fps); got != tc.want {
				t.Errorf("frameInterval(%d) = %v, expected %v", tc.fps, got, tc.want)
			}
		})
	}
}
