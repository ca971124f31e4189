// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// SIDECAR TYPES
// =============================================================================

// ImageRef points at one generated image. URL is either a remote locator or
// an inline data URL; either way it is the image's identity.
type ImageRef struct {
	URL string `json:"url"`
}

// Citation is a source reference attached to an assistant message.
// Identity is by URL; Title is display-only.
type Citation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single committed message in a conversation.
// Assistant messages may carry the sidecar data accumulated during
// streaming; user and system messages never do.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	Content   string     `json:"content"`
	Reasoning string     `json:"reasoning,omitempty"`
	Images    []ImageRef `json:"images,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a committed assistant message from a finished
// stream snapshot's parts.
func NewAssistantMessage(content, reasoning string, images []ImageRef, citations []Citation) *Message {
	m := NewMessage(RoleAssistant, content)
	m.Reasoning = reasoning
	m.Images = images
	m.Citations = citations
	return m
}

// HasReasoning reports whether the message carries a reasoning trace.
func (m *Message) HasReasoning() bool {
	return m.Reasoning != ""
}
