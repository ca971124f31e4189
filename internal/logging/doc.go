// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application logger. It exposes log/slog as the
// front end so call sites stay library-neutral, with charmbracelet/log as
// the handler for human-friendly terminal output and slog's JSON handler
// for log files.
package logging
