// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the non-TUI surface of relay: argument parsing,
// the one-shot/REPL ask mode, the model catalog listing, and conversation
// history commands.
//
// The ask mode drives the same stream.Controller the TUI uses; only the
// presentation differs. Output is rendered through glamour when stdout is
// a terminal and streamed as plain text when piped.
package cli
