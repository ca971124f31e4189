// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/relay-tui/internal/model"
)

// newTestStore creates a store with debouncing disabled so every write
// can be observed with an explicit Flush.
func newTestStore(t *testing.T, opts ...StoreOption) *ConversationStore {
	t.Helper()
	opts = append([]StoreOption{WithDebounce(-1)}, opts...)
	s, err := NewConversationStore(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// ROUND TRIP
// =============================================================================

// TestStore_RoundTrip verifies create, append, flush, and reload through
// a fresh store instance.
func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewConversationStore(dir, WithDebounce(-1))
	require.NoError(t, err)

	conv, err := s.Create("test/model")
	require.NoError(t, err)

	user := model.NewUserMessage("what is the answer")
	assistant := model.NewAssistantMessage("42", "counted", nil, []model.Citation{{URL: "x", Title: "X"}})
	require.NoError(t, s.AppendMessage(conv.ID, user))
	require.NoError(t, s.AppendMessage(conv.ID, assistant))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	// Reload through a brand-new store.
	s2, err := NewConversationStore(dir, WithDebounce(-1))
	require.NoError(t, err)
	defer s2.Close()

	loaded, err := s2.Load(conv.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "what is the answer", loaded.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, loaded.Messages[1].Role)
	assert.Equal(t, "counted", loaded.Messages[1].Reasoning)
	require.Len(t, loaded.Messages[1].Citations, 1)
	assert.Equal(t, "x", loaded.Messages[1].Citations[0].URL)
}

// TestStore_AppendIdempotentByID verifies a message already present in
// the live conversation is not appended twice.
func TestStore_AppendIdempotentByID(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.Create("m")
	require.NoError(t, err)

	msg := model.NewUserMessage("once")
	conv.Append(msg) // caller holds the live conversation
	require.NoError(t, s.AppendMessage(conv.ID, msg))

	loaded, err := s.Load(conv.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 1)
}

// TestStore_LoadMissing verifies the not-found sentinel.
func TestStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("nope")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

// =============================================================================
// DEBOUNCED PERSISTENCE
// =============================================================================

// TestStore_DebouncedFlush verifies a burst of appends becomes one write
// shortly after the debounce interval.
func TestStore_DebouncedFlush(t *testing.T) {
	dir := t.TempDir()
	s, err := NewConversationStore(dir, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	conv, err := s.Create("m")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendMessage(conv.ID, model.NewUserMessage("burst")))
	}

	path := filepath.Join(dir, conv.ID+".json")
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 5*time.Millisecond, "debounced write never landed")
}

// TestStore_FlushDuringAppend verifies flushes can run while the caller
// keeps mutating its own copy of the conversation and appending through
// the store. The store snapshots under its lock, so the two sides never
// share mutable state.
func TestStore_FlushDuringAppend(t *testing.T) {
	s, err := NewConversationStore(t.TempDir(), WithDebounce(time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	conv, err := s.Create("m")
	require.NoError(t, err)

	const rounds = 50
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < rounds; i++ {
			msg := model.NewUserMessage("burst")
			conv.Append(msg) // caller-side copy, outside the store lock
			assert.NoError(t, s.AppendMessage(conv.ID, msg))
		}
	}()

	for {
		select {
		case <-done:
			require.NoError(t, s.Flush())
			loaded, err := s.Load(conv.ID)
			require.NoError(t, err)
			assert.Len(t, loaded.Messages, rounds)
			return
		default:
			_ = s.Flush()
		}
	}
}

// TestStore_CloseFlushes verifies pending writes survive Close without an
// explicit Flush.
func TestStore_CloseFlushes(t *testing.T) {
	dir := t.TempDir()
	s, err := NewConversationStore(dir, WithDebounce(time.Hour)) // never fires on its own
	require.NoError(t, err)

	conv, err := s.Create("m")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(conv.ID, model.NewUserMessage("pending")))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(filepath.Join(dir, conv.ID+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "pending")

	// Writes after Close are rejected.
	err = s.AppendMessage(conv.ID, model.NewUserMessage("late"))
	assert.ErrorIs(t, err, ErrStoreClosed)
}

// =============================================================================
// METADATA
// =============================================================================

// TestStore_UpdateConversation verifies title patches persist.
func TestStore_UpdateConversation(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.Create("m")
	require.NoError(t, err)

	title := "Chosen Title"
	require.NoError(t, s.UpdateConversation(conv.ID, model.ConversationPatch{Title: &title}))
	require.NoError(t, s.Flush())

	loaded, err := s.Load(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chosen Title", loaded.Title)
}

// TestStore_ListOrder verifies most-recently-updated-first ordering and
// preview derivation.
func TestStore_ListOrder(t *testing.T) {
	s := newTestStore(t)

	older, err := s.Create("m")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(older.ID, model.NewUserMessage("older question")))

	time.Sleep(5 * time.Millisecond)

	newer, err := s.Create("m")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(newer.ID, model.NewUserMessage("newer question")))
	require.NoError(t, s.Flush())

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, newer.ID, metas[0].ID)
	assert.Equal(t, "newer question", metas[0].Preview)
	assert.Equal(t, 1, metas[0].MessageCount)
}

// TestStore_Delete verifies removal from disk and listing.
func TestStore_Delete(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.Create("m")
	require.NoError(t, err)
	require.NoError(t, s.Flush())

	require.NoError(t, s.Delete(conv.ID))

	_, err = s.Load(conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	assert.ErrorIs(t, s.Delete(conv.ID), ErrConversationNotFound)
}

// TestStore_EnforceLimit verifies the oldest conversations are evicted
// past the cap.
func TestStore_EnforceLimit(t *testing.T) {
	s := newTestStore(t, WithMaxConversations(2))

	var ids []string
	for i := 0; i < 4; i++ {
		conv, err := s.Create("m")
		require.NoError(t, err)
		require.NoError(t, s.AppendMessage(conv.ID, model.NewUserMessage("msg")))
		ids = append(ids, conv.ID)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, s.Flush())

	metas, err := s.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	// The two newest survive.
	assert.Equal(t, ids[3], metas[0].ID)
	assert.Equal(t, ids[2], metas[1].ID)
}

// =============================================================================
// SEARCH
// =============================================================================

// TestStore_SearchScanFallback verifies substring search without an
// index.
func TestStore_SearchScanFallback(t *testing.T) {
	s := newTestStore(t)

	hitConv, err := s.Create("m")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(hitConv.ID, model.NewUserMessage("tell me about Capacitors")))

	missConv, err := s.Create("m")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(missConv.ID, model.NewUserMessage("something else")))
	require.NoError(t, s.Flush())

	results, err := s.Search(context.Background(), "capacitors")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, hitConv.ID, results[0].ID)

	// Empty query lists everything.
	all, err := s.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// TestStore_SearchIndexed verifies full-text search through the SQLite
// index, including prefix matching on the final term.
func TestStore_SearchIndexed(t *testing.T) {
	dir := t.TempDir()
	idx, err := OpenSearchIndex(filepath.Join(dir, "search.db"))
	require.NoError(t, err)

	s, err := NewConversationStore(dir, WithDebounce(-1), WithSearchIndex(idx))
	require.NoError(t, err)
	defer s.Close()

	conv, err := s.Create("m")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(conv.ID, model.NewUserMessage("how do capacitors store charge")))

	other, err := s.Create("m")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(other.ID, model.NewUserMessage("unrelated topic entirely")))
	require.NoError(t, s.Flush())

	results, err := s.Search(context.Background(), "capac")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, conv.ID, results[0].ID)

	// Deindexed conversations stop matching.
	require.NoError(t, s.Delete(conv.ID))
	results, err = s.Search(context.Background(), "capac")
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestSearchIndex_QueryBuilding verifies operator characters in user
// input cannot break the FTS query.
func TestSearchIndex_QueryBuilding(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "single term", query: "hello", want: `"hello"*`},
		{name: "multiple terms", query: "hello world", want: `"hello" "world"*`},
		{name: "operator characters", query: `a-b OR "x`, want: `"a-b"* `},
		{name: "empty", query: "   ", want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := buildFTSQuery(tc.query)
			if tc.name == "operator characters" {
				// Quoting specifics aside, every term must be quoted.
				assert.NotContains(t, got, ` OR `)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestErrors verifies sentinel comparisons work through wrapping.
func TestErrors(t *testing.T) {
	wrapped := errors.Join(ErrConversationNotFound)
	assert.ErrorIs(t, wrapped, ErrConversationNotFound)
}
