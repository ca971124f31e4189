// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for relay-tui.
//
// Configuration lives in a single TOML file with sensible defaults,
// environment variable overrides, and validation with bounds clamping.
// A file watcher supports hot reload so model and profile changes take
// effect without restarting the client.
//
// Configuration file location:
//   - ~/.relay/config.toml
//   - Built-in defaults when the file does not exist
package config
