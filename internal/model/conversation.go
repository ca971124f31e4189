// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// DefaultTitle is the placeholder title before the first exchange completes.
const DefaultTitle = "New conversation"

// Conversation is an ordered exchange of messages with one model.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Model     string     `json:"model"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`
}

// ConversationPatch is a partial update to conversation metadata. Nil
// fields are left unchanged.
type ConversationPatch struct {
	Title *string `json:"title,omitempty"`
	Model *string `json:"model,omitempty"`
}

// NewConversation creates an empty conversation bound to a model.
func NewConversation(model string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		Title:     DefaultTitle,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds a message and bumps the updated timestamp.
func (c *Conversation) Append(m *Message) {
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = time.Now()
}

// Clone returns a copy with its own message slice. The messages
// themselves are shared; they are immutable once constructed.
func (c *Conversation) Clone() *Conversation {
	dup := *c
	dup.Messages = append([]*Message(nil), c.Messages...)
	return &dup
}

// IsFirstExchange reports whether no assistant reply has been committed
// yet. Title generation runs only on the first completed exchange.
func (c *Conversation) IsFirstExchange() bool {
	for _, m := range c.Messages {
		if m.Role == RoleAssistant {
			return false
		}
	}
	return true
}

// FirstUserText returns the content of the earliest user message, or "".
// Feeds the title-generation fallback.
func (c *Conversation) FirstUserText() string {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return ""
}

// ApplyPatch applies a partial metadata update. Nil fields are left
// unchanged.
func (c *Conversation) ApplyPatch(p ConversationPatch) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Model != nil {
		c.Model = *p.Model
	}
	c.UpdatedAt = time.Now()
}

// LastAssistant returns the most recent assistant message, or nil.
func (c *Conversation) LastAssistant() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i]
		}
	}
	return nil
}
