// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strings"
	"time"

	"github.com/jeranaias/relay-tui/internal/model"
)

// ExportMarkdown renders a conversation as a Markdown transcript with
// reasoning, images, and citations included.
func ExportMarkdown(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.Title + "\n\n")
	sb.WriteString("Model: " + conv.Model + "\n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range conv.Messages {
		sb.WriteString("**" + msg.Role.DisplayName() + "** (" + msg.Timestamp.Format("15:04") + "):\n\n")

		if msg.HasReasoning() {
			sb.WriteString("> Reasoning:\n")
			for _, line := range strings.Split(msg.Reasoning, "\n") {
				sb.WriteString("> " + line + "\n")
			}
			sb.WriteString("\n")
		}

		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		for _, img := range msg.Images {
			sb.WriteString("\n![image](" + img.URL + ")\n")
		}
		if len(msg.Citations) > 0 {
			sb.WriteString("\nSources:\n")
			for _, c := range msg.Citations {
				title := c.Title
				if title == "" {
					title = c.URL
				}
				sb.WriteString("- [" + title + "](" + c.URL + ")\n")
			}
		}
		sb.WriteString("\n---\n\n")
	}
	return sb.String()
}
