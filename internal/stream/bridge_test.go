// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"testing"

	"github.com/jeranaias/relay-tui/internal/openrouter"
)

// TestBridge_SubscribeUnsubscribe verifies delivery stops after the
// unsubscribe function runs, and that running it twice is harmless.
func TestBridge_SubscribeUnsubscribe(t *testing.T) {
	b := NewBridge(NewSession())

	var got int
	unsub := b.Subscribe(func(Event) { got++ })

	b.publish(Event{Kind: EventStart})
	if got != 1 {
		t.Fatalf("got %d events, expected 1", got)
	}

	unsub()
	unsub() // second call is a no-op
	b.publish(Event{Kind: EventReset})
	if got != 1 {
		t.Errorf("got %d events after unsubscribe, expected still 1", got)
	}
}

// TestBridge_MultipleSubscribers verifies every subscriber sees every
// event.
func TestBridge_MultipleSubscribers(t *testing.T) {
	b := NewBridge(NewSession())

	var a, c int
	b.Subscribe(func(Event) { a++ })
	b.Subscribe(func(Event) { c++ })

	b.publish(Event{Kind: EventStart})
	b.publish(Event{Kind: EventEnd})

	if a != 2 || c != 2 {
		t.Errorf("subscribers saw %d and %d events, expected 2 each", a, c)
	}
}

// TestBridge_PeekMidStream verifies Peek reflects integrated deltas
// without any event having fired.
func TestBridge_PeekMidStream(t *testing.T) {
	s := NewSession()
	b := NewBridge(s)

	s.Start("conv-1")
	s.Integrate(openrouter.Delta{Text: "partial "})
	s.Integrate(openrouter.Delta{Text: "answer"})

	snap := b.Peek()
	if snap.Content != "partial answer" {
		t.Errorf("Peek content = %q, expected 'partial answer'", snap.Content)
	}
	if snap.ConversationID != "conv-1" {
		t.Errorf("Peek conversation = %q, expected conv-1", snap.ConversationID)
	}
}

// TestBridge_PeekDuringEventDelivery verifies a subscriber handling an
// event can call Peek without deadlocking.
func TestBridge_PeekDuringEventDelivery(t *testing.T) {
	s := NewSession()
	b := NewBridge(s)

	s.Start("conv-1")
	s.Integrate(openrouter.Delta{Text: "done"})

	var seen string
	b.Subscribe(func(ev Event) {
		if ev.Kind == EventEnd {
			seen = b.Peek().Content
		}
	})

	snap, _ := s.Finish()
	b.publish(Event{Kind: EventEnd, ConversationID: "conv-1", Snapshot: &snap})

	if seen != "done" {
		t.Errorf("Peek during EventEnd = %q, expected 'done'", seen)
	}
}
