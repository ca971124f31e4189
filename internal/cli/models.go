// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Model catalog listing.
package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// modelsTimeout bounds the catalog fetch.
const modelsTimeout = 30 * time.Second

// HandleModelsCommand lists the models the aggregator exposes, sorted by
// display name. Plain rows when piped, a tabulated view on a TTY.
func HandleModelsCommand(args Args) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger := newLogger(args)

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), modelsTimeout)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if !IsStdoutTTY() {
		// Piped: one ID per line, grep-friendly.
		for _, m := range models {
			fmt.Println(m.ID)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tCONTEXT")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.DisplayName(), m.ID, formatContext(m.ContextSize))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !args.Quiet {
		fmt.Fprintf(os.Stderr, "\n%s\n", infoStyle.Render(fmt.Sprintf("%d models", len(models))))
	}
	return nil
}

// formatContext renders a context window size compactly (128000 -> 128k).
func formatContext(n int) string {
	if n <= 0 {
		return "-"
	}
	if n >= 1000 && n%1000 == 0 {
		return fmt.Sprintf("%dk", n/1000)
	}
	return fmt.Sprintf("%d", n)
}
