// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the relay TUI.
// A Theme detects terminal color capability once at startup and exposes
// the lipgloss styles the chat view composes its layout from.
package styles
