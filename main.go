// relay TUI - a terminal chat client for OpenRouter.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/relay-tui/internal/cli"
	"github.com/jeranaias/relay-tui/internal/config"
	"github.com/jeranaias/relay-tui/internal/logging"
	"github.com/jeranaias/relay-tui/internal/openrouter"
	"github.com/jeranaias/relay-tui/internal/storage"
	"github.com/jeranaias/relay-tui/internal/stream"
	"github.com/jeranaias/relay-tui/internal/ui/chat"
	"github.com/jeranaias/relay-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		exitOn(cli.HandleAskCommand(args))
	case cli.CmdModels:
		exitOn(cli.HandleModelsCommand(args))
	case cli.CmdHistory:
		exitOn(cli.HandleHistoryCommand(args))
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		runTUI(args)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI wires the streaming pipeline and starts the chat interface.
func runTUI(args cli.Args) {
	cfg, err := loadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so logs go to a file instead of stderr.
	logger, logClose := fileLogger(args.Verbose)
	defer logClose()

	apiKey := os.Getenv(cli.APIKeyEnv)
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "Error: no API key. Set %s and retry.\n", cli.APIKeyEnv)
		os.Exit(1)
	}
	client := openrouter.NewClient(apiKey,
		openrouter.WithBaseURL(cfg.API.BaseURL),
		openrouter.WithRequestsPerMinute(cfg.API.RequestsPerMinute),
		openrouter.WithLogger(logger),
	)

	store, err := openStore(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	session := stream.NewSession()
	bridge := stream.NewBridge(session)
	controller := stream.NewController(client, store, session, bridge, stream.Config{
		TitleModel:            cfg.Title.Model,
		TitleFallbackMaxRunes: cfg.Title.FallbackMaxRunes,
		AssistantSampleRunes:  cfg.Title.AssistantSampleRunes,
	}, logger)

	modelID := cfg.API.Model
	if args.Model != "" {
		modelID = args.Model
	}
	controller.SetModel(modelID)
	controller.SetSystemPrompt(cfg.SystemPrompt())

	conv, err := store.Create(modelID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	controller.SetConversation(conv)

	// Hot reload: profile and model changes apply to the next exchange
	// without a restart. Only these two settings are live; transport and
	// storage settings need a restart.
	watcher := watchConfig(args, logger, func(next *config.Config) {
		controller.SetSystemPrompt(next.SystemPrompt())
		if args.Model == "" {
			controller.SetModel(next.API.Model)
		}
	})
	if watcher != nil {
		defer watcher.Close()
	}

	lipgloss.SetColorProfile(termenv.ColorProfile())
	theme := styles.NewTheme()

	m := chat.New(controller, bridge, cfg, theme)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running relay: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file named by --config, or the default.
func loadConfig(args cli.Args) (*config.Config, error) {
	if args.Config != "" {
		return config.LoadFromPath(args.Config)
	}
	return config.Load()
}

// openStore opens the conversation store and its full-text index. A
// broken index degrades search to a scan rather than failing startup.
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

// fileLogger builds the TUI logger writing to ~/.relay/relay.log. When
// the file cannot be opened logging is dropped instead of corrupting
// the alternate screen.
func fileLogger(verbose bool) (*slog.Logger, func()) {
	dir, err := config.Dir()
	if err != nil {
		return logging.Nop(), func() {}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return logging.Nop(), func() {}
	}

	f, err := os.OpenFile(filepath.Join(dir, "relay.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return logging.Nop(), func() {}
	}

	logger := logging.New(logging.WithDebug(verbose), logging.WithJSON(true), logging.WithWriter(f))
	return logger, func() { f.Close() }
}

// watchConfig starts the hot-reload watcher. Best effort: a watch
// failure logs and returns nil.
func watchConfig(args cli.Args, logger *slog.Logger, onChange func(*config.Config)) *config.Watcher {
	path := args.Config
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			logger.Warn("config watch disabled", "error", err)
			return nil
		}
	}

	w, err := config.NewWatcher(path, logger, onChange)
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
		return nil
	}
	return w
}
