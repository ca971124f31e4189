// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// runtime.go - Shared wiring for CLI commands.
//
// Every command needs some subset of config, logger, API client, and
// conversation store. The helpers here build them the same way main
// does for the TUI, so a conversation started from `relay ask` shows
// up in the TUI history and vice versa.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/logging"
	"github.com/jeranaias/relay-tui/internal/openrouter"
	"github.com/jeranaias/relay-tui/internal/storage"
)

// APIKeyEnv is the environment variable holding the API key.
const APIKeyEnv = "OPENROUTER_API_KEY"

// loadConfig loads the config file named by --config, or the default
// ~/.relay/config.toml.
func loadConfig(args Args) (*config.Config, error) {
	if args.Config != "" {
		return config.LoadFromPath(args.Config)
	}
	return config.Load()
}

// newLogger builds the CLI logger. Quiet silences everything; verbose
// enables debug. Logs always go to stderr so piped stdout stays clean.
func newLogger(args Args) *slog.Logger {
	if args.Quiet {
		return logging.Nop()
	}
	return logging.New(logging.WithDebug(args.Verbose), logging.WithWriter(os.Stderr))
}

// newClient builds the API client from config and the environment.
func newClient(cfg *config.Config, logger *slog.Logger) (*openrouter.Client, error) {
	apiKey := os.Getenv(APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("no API key: set %s", APIKeyEnv)
	}
	return openrouter.NewClient(apiKey,
		openrouter.WithBaseURL(cfg.API.BaseURL),
		openrouter.WithRequestsPerMinute(cfg.API.RequestsPerMinute),
		openrouter.WithLogger(logger),
	), nil
}

// openStore opens the conversation store plus its full-text index. The
// index is best-effort: a failure to open it degrades search to a scan,
// it never blocks the store.
func openStore(cfg *config.Config, logger *slog.Logger) (*storage.ConversationStore, error) {
	dir := cfg.Storage.Dir
	if dir == "" {
		base, err := config.Dir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "conversations")
	}

	opts := []storage.StoreOption{
		storage.WithDebounce(time.Duration(cfg.Storage.DebounceMs) * time.Millisecond),
		storage.WithMaxConversations(cfg.Storage.MaxConversations),
		storage.WithStoreLogger(logger),
	}

	if base, err := config.Dir(); err == nil {
		if index, err := storage.OpenSearchIndex(filepath.Join(base, "index.db")); err == nil {
			opts = append(opts, storage.WithSearchIndex(index))
		} else {
			logger.Warn("search index unavailable", "error", err)
		}
	}

	return storage.NewConversationStore(dir, opts...)
}
