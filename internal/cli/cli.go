// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for relay.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdModels
	CmdHistory
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Model   string
	Config  string // explicit config file path

	// Command-specific
	Query      string
	File       string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `relay - terminal chat client for OpenRouter

Relay streams chat completions from an OpenRouter-style aggregator,
with reasoning traces, image attachments, and web-search citations
accumulated incrementally as tokens arrive.

Usage:
  relay                        Start the chat TUI (default)
  relay ask "question"         Ask a single question and exit
  relay ask                    Interactive REPL with input history
  relay models                 List available models
  relay history [subcommand]   Browse saved conversations
  relay version                Show version information
  relay help                   Show this help

Ask flags:
  -f, --file FILE    Include file content with the question
  -m, --model NAME   Use a specific model for this session

History subcommands:
  relay history                List conversations (newest first)
  relay history show <id>      Print a conversation as Markdown
  relay history search <text>  Full-text search across conversations
  relay history delete <id>    Delete a conversation

Global flags:
  --config PATH      Use an alternate config file
  -q, --quiet        Minimal output
  -v, --verbose      Debug logging
  --model NAME       Override the default model

Environment:
  OPENROUTER_API_KEY   API key (required for ask/models/TUI)
  RELAY_MODEL          Default model override
  RELAY_API_BASE_URL   Alternate API base URL

Examples:
  relay ask "What is a slice header?"
  cat error.log | relay ask "Explain this error"
  relay ask "Review this:" --file main.go
  relay models | grep claude
  relay history search "rate limiter"

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("relay version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs is Parse over an explicit argument slice. Split out for tests.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "ask":
		parseAskArgs(&args, remaining)
		return CmdAsk, args

	case "models", "model":
		return CmdModels, args

	case "history", "conversations":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
			args.Raw = remaining[1:]
		}
		return CmdHistory, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		// Unknown word: treat the whole invocation as an ask query.
		// "relay what is a goroutine" just works.
		args.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		return CmdAsk, args
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	i := 0
	for i < len(argv) {
		arg := argv[i]

		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "--verbose":
			args.Verbose = true
		case "--model":
			if i+1 < len(argv) {
				i++
				args.Model = argv[i]
			}
		case "--config":
			if i+1 < len(argv) {
				i++
				args.Config = argv[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--model="):
				args.Model = strings.TrimPrefix(arg, "--model=")
			case strings.HasPrefix(arg, "--config="):
				args.Config = strings.TrimPrefix(arg, "--config=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, args
}

// parseAskArgs parses ask command specific arguments. Positional words are
// joined into the query.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "-f", "--file":
			if i+1 < len(remaining) {
				i++
				args.File = remaining[i]
			}
		case "-m", "--model":
			if i+1 < len(remaining) {
				i++
				args.Model = remaining[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--file="):
				args.File = strings.TrimPrefix(arg, "--file=")
			case strings.HasPrefix(arg, "--model="):
				args.Model = strings.TrimPrefix(arg, "--model=")
			default:
				query = append(query, arg)
			}
		}
		i++
	}

	args.Query = strings.Join(query, " ")
}
