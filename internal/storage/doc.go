// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations as one JSON file each under a
// base directory, with atomic writes and debounced flushing: appends mark
// a conversation dirty and a timer writes it out shortly after, so a
// burst of messages costs one write. Close flushes synchronously.
//
// An optional SQLite full-text index over committed message text backs
// conversation search.
package storage
