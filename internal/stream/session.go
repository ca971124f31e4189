// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/openrouter"
)

// Error variables for session lifecycle misuse.
var (
	// ErrSessionActive indicates Start was called while a session is
	// already accumulating. Sessions fail fast here rather than silently
	// resetting; merged buffers are worse than a rejected start.
	ErrSessionActive = errors.New("stream session already active")

	// ErrNoActiveSession indicates Integrate or Finish was called without
	// an active session.
	ErrNoActiveSession = errors.New("no active stream session")
)

// Snapshot is an immutable copy of accumulated response state. Safe to
// hand across goroutines; slices are never shared with the live session.
type Snapshot struct {
	ConversationID string
	Content        string
	Reasoning      string
	Images         []model.ImageRef
	Citations      []model.Citation
}

// =============================================================================
// SESSION
// =============================================================================

// Session accumulates one streamed response. Content and reasoning are
// append-only; images and citations keep first-seen order and are
// deduplicated by URL. All methods are safe for concurrent use; Snapshot
// may be called at any time, including between integrations.
type Session struct {
	mu sync.Mutex

	active         bool
	conversationID string

	content   strings.Builder
	reasoning strings.Builder
	images    []model.ImageRef
	citations []model.Citation

	seenImages    map[string]struct{}
	seenCitations map[string]struct{}
}

// NewSession creates an idle session.
func NewSession() *Session {
	return &Session{}
}

// Start begins accumulating for the given conversation. Fails with
// ErrSessionActive if a session is already in flight.
func (s *Session) Start(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return ErrSessionActive
	}

	s.clearLocked()
	s.active = true
	s.conversationID = conversationID
	return nil
}

// Integrate folds one delta into the buffers. Returns citationsAppeared
// true only on the delta that takes citations from empty to non-empty.
// Repeated image or citation URLs are ignored.
func (s *Session) Integrate(d openrouter.Delta) (citationsAppeared bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return false, ErrNoActiveSession
	}

	s.content.WriteString(d.Text)
	s.reasoning.WriteString(d.Reasoning)

	for _, img := range d.Images {
		if _, seen := s.seenImages[img.URL]; seen {
			continue
		}
		s.seenImages[img.URL] = struct{}{}
		s.images = append(s.images, img)
	}

	hadCitations := len(s.citations) > 0
	for _, c := range d.Citations {
		if _, seen := s.seenCitations[c.URL]; seen {
			continue
		}
		s.seenCitations[c.URL] = struct{}{}
		s.citations = append(s.citations, c)
	}
	citationsAppeared = !hadCitations && len(s.citations) > 0

	return citationsAppeared, nil
}

// Finish ends accumulation and returns the final snapshot. A second call
// without an intervening Start fails with ErrNoActiveSession.
func (s *Session) Finish() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return Snapshot{}, ErrNoActiveSession
	}
	s.active = false
	return s.snapshotLocked(), nil
}

// Reset discards all accumulated state unconditionally.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Active reports whether a session is accumulating.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ConversationID returns the conversation the active session belongs to,
// or "" when idle.
func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// Snapshot returns a consistent copy of the current state. Valid at any
// time; mid-stream it reflects everything integrated so far.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// snapshotLocked copies current state. Caller holds s.mu.
func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ConversationID: s.conversationID,
		Content:        s.content.String(),
		Reasoning:      s.reasoning.String(),
	}
	if len(s.images) > 0 {
		snap.Images = append([]model.ImageRef(nil), s.images...)
	}
	if len(s.citations) > 0 {
		snap.Citations = append([]model.Citation(nil), s.citations...)
	}
	return snap
}

// clearLocked resets all buffers. Caller holds s.mu.
func (s *Session) clearLocked() {
	s.active = false
	s.conversationID = ""
	s.content.Reset()
	s.reasoning.Reset()
	s.images = nil
	s.citations = nil
	s.seenImages = make(map[string]struct{})
	s.seenCitations = make(map[string]struct{})
}
