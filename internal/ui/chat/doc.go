// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view. The view never receives
// individual deltas: while a response streams it polls the bridge's Peek
// on a capped frame tick and re-renders whatever has accumulated, so
// token arrival rate and frame rate stay decoupled. Structural changes
// (stream start, first citation, end, reset) arrive as bridge events
// forwarded into the update loop.
package chat
