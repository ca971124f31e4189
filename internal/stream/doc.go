// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream owns the life of one in-flight model response: the
// accumulator that folds deltas into a message, the bridge that tells the
// UI when structure (not just length) changes, and the controller state
// machine that drives a submit from request through commit.
//
// The package enforces a single-active-session model. There is never more
// than one response being accumulated per Session instance, and a commit
// writes exactly one assistant message into the conversation store.
package stream
