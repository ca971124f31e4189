// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "sync"

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies a structural change in the streaming session.
// Buffer growth is deliberately not an event: the UI polls Peek on its own
// frame tick, so mutation frequency never dictates render frequency.
type EventKind int

const (
	// EventStart fires when a session begins accumulating.
	EventStart EventKind = iota

	// EventCitations fires once, when citations first become non-empty.
	// Later citation appends do not fire again.
	EventCitations

	// EventEnd fires when a session finishes normally. Snapshot carries
	// the final state, and Peek still observes it during delivery.
	EventEnd

	// EventReset fires when a session is discarded without committing,
	// on cancel or transport error.
	EventReset
)

// Event is one structural notification.
type Event struct {
	Kind           EventKind
	ConversationID string

	// Snapshot is set on EventEnd only.
	Snapshot *Snapshot
}

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge connects the streaming session to a rendering layer. Subscribers
// get structural events synchronously with the state change; everything
// else is read through Peek.
type Bridge struct {
	session *Session

	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// NewBridge creates a bridge over the given session.
func NewBridge(session *Session) *Bridge {
	return &Bridge{
		session: session,
		subs:    make(map[int]func(Event)),
	}
}

// Subscribe registers a structural-event handler and returns its
// unsubscribe function. Unsubscribing twice is harmless.
func (b *Bridge) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Peek returns the latest session snapshot without subscribing. Safe at
// any time, including mid-integration.
func (b *Bridge) Peek() Snapshot {
	return b.session.Snapshot()
}

// publish delivers an event to every subscriber, synchronously and in no
// particular order. The session lock is never held here, so handlers may
// call Peek freely.
func (b *Bridge) publish(ev Event) {
	b.mu.Lock()
	handlers := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
