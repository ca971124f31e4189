// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for relay-tui: atomic file
// writes for the conversation store and rune/width-safe string truncation
// for titles and list previews.
package util
