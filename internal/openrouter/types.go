// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openrouter

import "encoding/json"

// =============================================================================
// OUTBOUND TYPES
// =============================================================================

// ChatMessage is one message in an outbound chat completion request.
// Content is either a plain string or a slice of ContentPart for
// multimodal messages; MessageContent handles both encodings.
type ChatMessage struct {
	Role    string         `json:"role"` // "user", "assistant", or "system"
	Content MessageContent `json:"content"`
}

// NewUserMessage creates a plain-text user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: Text(content)}
}

// NewAssistantMessage creates a plain-text assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: Text(content)}
}

// NewSystemMessage creates a plain-text system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: Text(content)}
}

// MessageContent is a string or an ordered list of multimodal parts.
// Exactly one of the two fields is set.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// Text wraps a plain string as message content.
func Text(s string) MessageContent {
	return MessageContent{Text: s}
}

// Multimodal wraps an ordered part list as message content.
func Multimodal(parts ...ContentPart) MessageContent {
	return MessageContent{Parts: parts}
}

// MarshalJSON encodes the content as a bare string when there are no
// parts, and as a part array otherwise.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Parts)
}

// UnmarshalJSON accepts either encoding.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	c.Text = ""
	c.Parts = parts
	return nil
}

// ContentPart is one element of a multimodal content array.
type ContentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *URLField `json:"image_url,omitempty"`
}

// TextPart creates a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart creates an image_url content part.
func ImagePart(url string) ContentPart {
	return ContentPart{Type: "image_url", ImageURL: &URLField{URL: url}}
}

// URLField is the nested {"url": ...} object used by image payloads.
type URLField struct {
	URL string `json:"url"`
}

// ChatRequest is a request to the chat completions endpoint.
type ChatRequest struct {
	Model      string        `json:"model"`
	Messages   []ChatMessage `json:"messages"`
	Stream     bool          `json:"stream"`
	Modalities []string      `json:"modalities,omitempty"`
	MaxTokens  int           `json:"max_tokens,omitempty"`
}

// =============================================================================
// INBOUND TYPES
// =============================================================================

// ChatResponse is a non-streaming response from the chat completions
// endpoint. Used by title generation.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the content of the first choice, or "".
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// Pricing is the per-token pricing block of a catalog entry.
type Pricing struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// ModelInfo describes one model in the aggregator's catalog.
type ModelInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ContextSize int     `json:"context_length"`
	Pricing     Pricing `json:"pricing"`
}

// DisplayName returns the human name, falling back to the ID.
func (m ModelInfo) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// modelsResponse is the wire shape of the /models listing.
type modelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// apiErrorResponse is the structured error body of a non-2xx response.
type apiErrorResponse struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}
