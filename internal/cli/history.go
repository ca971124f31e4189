// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history.go - Conversation history commands.
//
//	relay history                List conversations (newest first)
//	relay history show <id>      Print a conversation as Markdown
//	relay history search <text>  Full-text search across conversations
//	relay history delete <id>    Delete a conversation
//
// Conversation IDs may be abbreviated to any unique prefix.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/relay-tui/internal/storage"
	"github.com/jeranaias/relay-tui/internal/util"
)

// HandleHistoryCommand dispatches the history subcommands.
func HandleHistoryCommand(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger := newLogger(args)

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	switch args.Subcommand {
	case "", "list", "ls":
		return historyList(store)

	case "show":
		if len(args.Raw) == 0 {
			return fmt.Errorf("usage: relay history show <id>")
		}
		return historyShow(store, args.Raw[0])

	case "search":
		if len(args.Raw) == 0 {
			return fmt.Errorf("usage: relay history search <text>")
		}
		return historySearch(store, strings.Join(args.Raw, " "))

	case "delete", "rm":
		if len(args.Raw) == 0 {
			return fmt.Errorf("usage: relay history delete <id>")
		}
		return historyDelete(store, args.Raw[0])

	default:
		return fmt.Errorf("unknown history subcommand %q (list, show, search, delete)", args.Subcommand)
	}
}

func historyList(store *storage.ConversationStore) error {
	metas, err := store.List()
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	printMetas(metas)
	return nil
}

func historyShow(store *storage.ConversationStore, idPrefix string) error {
	id, err := resolveID(store, idPrefix)
	if err != nil {
		return err
	}
	conv, err := store.Load(id)
	if err != nil {
		return err
	}

	md := storage.ExportMarkdown(conv)
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(md))
	} else {
		fmt.Print(md)
	}
	return nil
}

func historySearch(store *storage.ConversationStore, query string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metas, err := store.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Printf("No matches for %q.\n", query)
		return nil
	}
	printMetas(metas)
	return nil
}

func historyDelete(store *storage.ConversationStore, idPrefix string) error {
	id, err := resolveID(store, idPrefix)
	if err != nil {
		return err
	}
	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s.\n", shortID(id))
	return nil
}

// printMetas renders a conversation listing, newest first.
func printMetas(metas []storage.ConversationMeta) {
	previewWidth := TerminalWidth() - 12
	for _, m := range metas {
		age := formatAge(time.Since(m.UpdatedAt))
		fmt.Printf("%s  %s  %s\n",
			shortID(m.ID),
			titleStyle.Render(m.Title),
			infoStyle.Render(fmt.Sprintf("(%d messages, %s)", m.MessageCount, age)))
		if m.Preview != "" {
			fmt.Printf("          %s\n", infoStyle.Render(util.TruncateWidth(m.Preview, previewWidth)))
		}
	}
}

// resolveID expands a conversation ID prefix to the full ID, erroring on
// ambiguity.
func resolveID(store *storage.ConversationStore, prefix string) (string, error) {
	metas, err := store.List()
	if err != nil {
		return "", err
	}

	var match string
	for _, m := range metas {
		if !strings.HasPrefix(m.ID, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("ambiguous conversation ID %q", prefix)
		}
		match = m.ID
	}
	if match == "" {
		return "", fmt.Errorf("no conversation matching %q", prefix)
	}
	return match, nil
}

// shortID abbreviates a UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatAge renders a duration as a coarse age ("3h ago", "2d ago").
func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
