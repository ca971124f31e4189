// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// TITLE GENERATION
// =============================================================================

// titleSystemPrompt asks for a short label rather than a sentence.
const titleSystemPrompt = "Generate a short title (maximum 6 words) for this conversation. " +
	"Reply with the title only, without quotes or trailing punctuation."

// titleMaxTokens bounds the completion; titles are tiny.
const titleMaxTokens = 30

// ErrEmptyTitle indicates the title model returned no usable text.
var ErrEmptyTitle = errors.New("title generation returned empty text")

// GenerateTitle asks a cheap model to title the first exchange of a
// conversation. Best effort: callers must treat any error as non-fatal and
// fall back to a truncated prefix of the user's text.
//
// assistantSample should already be capped by the caller; the full
// assistant response is not needed to produce a title.
func (c *Client) GenerateTitle(ctx context.Context, titleModel, userText, assistantSample string) (string, error) {
	req := ChatRequest{
		Model: titleModel,
		Messages: []ChatMessage{
			NewSystemMessage(titleSystemPrompt),
			NewUserMessage(fmt.Sprintf("User message: %s\n\nAssistant response: %s", userText, assistantSample)),
		},
		MaxTokens: titleMaxTokens,
	}

	resp, err := c.Chat(ctx, req)
	if err != nil {
		return "", err
	}

	title := strings.TrimSpace(resp.GetContent())
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}
