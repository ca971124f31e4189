// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/relay-tui/internal/model"
	"github.com/jeranaias/relay-tui/internal/util"
)

// Error variables for store operations.
var (
	// ErrConversationNotFound indicates the requested conversation does
	// not exist on disk or in the cache.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrStoreClosed indicates a write after Close.
	ErrStoreClosed = errors.New("conversation store is closed")
)

// DefaultDebounce is the delay between a dirtying write and its flush.
const DefaultDebounce = 500 * time.Millisecond

// previewMaxRunes bounds the sidebar preview text.
const previewMaxRunes = 80

// ConversationMeta is the listing view of a stored conversation.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore persists conversations as one JSON file each.
// Writes are debounced: appends and patches mark the conversation dirty,
// and a timer flushes shortly after. The store is eventually durable, not
// durable on every append; Flush and Close force durability.
type ConversationStore struct {
	baseDir          string
	maxConversations int
	debounce         time.Duration
	logger           *slog.Logger
	index            *SearchIndex

	mu     sync.Mutex
	cache  map[string]*model.Conversation
	dirty  map[string]struct{}
	timer  *time.Timer
	closed bool
}

// StoreOption configures a ConversationStore.
type StoreOption func(*ConversationStore)

// WithMaxConversations limits stored conversations; the oldest are
// deleted past the limit. Zero means unlimited.
func WithMaxConversations(n int) StoreOption {
	return func(s *ConversationStore) { s.maxConversations = n }
}

// WithDebounce sets the flush delay. Zero or negative flushes on every
// write.
func WithDebounce(d time.Duration) StoreOption {
	return func(s *ConversationStore) { s.debounce = d }
}

// WithStoreLogger sets the store logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *ConversationStore) { s.logger = logger }
}

// WithSearchIndex attaches a full-text index kept in sync on append and
// delete.
func WithSearchIndex(idx *SearchIndex) StoreOption {
	return func(s *ConversationStore) { s.index = idx }
}

// NewConversationStore creates a store rooted at baseDir, creating the
// directory if needed.
func NewConversationStore(baseDir string, opts ...StoreOption) (*ConversationStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}

	s := &ConversationStore{
		baseDir:          baseDir,
		maxConversations: 100,
		debounce:         DefaultDebounce,
		logger:           slog.New(slog.DiscardHandler),
		cache:            make(map[string]*model.Conversation),
		dirty:            make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Create registers a new conversation bound to a model and schedules its
// first write. The returned conversation belongs to the caller; the store
// keeps its own copy, so callers may mutate theirs under their own locking
// as long as writes also go through AppendMessage or UpdateConversation.
func (s *ConversationStore) Create(modelID string) (*model.Conversation, error) {
	conv := model.NewConversation(modelID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	s.cache[conv.ID] = conv.Clone()
	s.markDirtyLocked(conv.ID)
	return conv, nil
}

// AppendMessage adds a message to the store's copy of the conversation
// and schedules a flush. Appending a message ID already present is a
// no-op, so callers may keep their own copy in step without double
// entries.
func (s *ConversationStore) AppendMessage(conversationID string, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	conv, err := s.getLocked(conversationID)
	if err != nil {
		return err
	}
	if !containsMessage(conv, msg.ID) {
		conv.Append(msg)
	}
	s.markDirtyLocked(conversationID)

	if s.index != nil {
		if err := s.index.IndexMessage(conversationID, msg); err != nil {
			s.logger.Warn("failed to index message", "error", err)
		}
	}
	return nil
}

// UpdateConversation applies a metadata patch and schedules a flush.
func (s *ConversationStore) UpdateConversation(conversationID string, patch model.ConversationPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}

	conv, err := s.getLocked(conversationID)
	if err != nil {
		return err
	}
	conv.ApplyPatch(patch)
	s.markDirtyLocked(conversationID)
	return nil
}

// Delete removes a conversation from disk, cache, and index.
func (s *ConversationStore) Delete(conversationID string) error {
	s.mu.Lock()
	delete(s.cache, conversationID)
	delete(s.dirty, conversationID)
	s.mu.Unlock()

	if s.index != nil {
		if err := s.index.RemoveConversation(conversationID); err != nil {
			s.logger.Warn("failed to deindex conversation", "error", err)
		}
	}

	if err := os.Remove(s.filePath(conversationID)); err != nil {
		if os.IsNotExist(err) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// Load retrieves a conversation by ID, preferring the in-memory copy so
// un-flushed appends are visible. The result is a copy; later writes to
// the store do not show through it.
func (s *ConversationStore) Load(conversationID string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.getLocked(conversationID)
	if err != nil {
		return nil, err
	}
	return conv.Clone(), nil
}

// List returns metadata for every stored conversation, most recently
// updated first. Corrupted files are skipped.
func (s *ConversationStore) List() ([]ConversationMeta, error) {
	s.mu.Lock()
	seen := make(map[string]struct{}, len(s.cache))
	metas := make([]ConversationMeta, 0, len(s.cache))
	for id, conv := range s.cache {
		seen[id] = struct{}{}
		metas = append(metas, metaOf(conv))
	}
	s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return metas, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if _, ok := seen[id]; ok {
			continue
		}
		conv, err := s.readFile(id)
		if err != nil {
			s.logger.Warn("skipping unreadable conversation", "id", id, "error", err)
			continue
		}
		metas = append(metas, metaOf(conv))
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// =============================================================================
// FLUSH AND CLOSE
// =============================================================================

// Flush writes every dirty conversation to disk synchronously. Dirty
// conversations are snapshotted under the lock; marshalling and the disk
// writes happen outside it so a slow disk never blocks appends.
func (s *ConversationStore) Flush() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.dirty))
	convs := make([]*model.Conversation, 0, len(s.dirty))
	for id := range s.dirty {
		if conv, ok := s.cache[id]; ok {
			ids = append(ids, id)
			convs = append(convs, conv.Clone())
		}
	}
	s.dirty = make(map[string]struct{})
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	var firstErr error
	for i, conv := range convs {
		if err := s.writeFile(conv); err != nil {
			s.logger.Error("failed to flush conversation", "id", ids[i], "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if s.maxConversations > 0 {
		s.enforceLimit()
	}
	return firstErr
}

// Close flushes pending writes and closes the search index. The store
// rejects writes afterwards.
func (s *ConversationStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.Flush()
	if s.index != nil {
		if cerr := s.index.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// =============================================================================
// INTERNALS
// =============================================================================

// getLocked returns the cached conversation, reading it from disk on a
// miss. Caller holds s.mu.
func (s *ConversationStore) getLocked(id string) (*model.Conversation, error) {
	if conv, ok := s.cache[id]; ok {
		return conv, nil
	}
	conv, err := s.readFile(id)
	if err != nil {
		return nil, err
	}
	s.cache[id] = conv
	return conv, nil
}

// markDirtyLocked schedules a debounced flush. Caller holds s.mu.
func (s *ConversationStore) markDirtyLocked(id string) {
	s.dirty[id] = struct{}{}
	if s.debounce <= 0 {
		go s.Flush()
		return
	}
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, func() {
			s.mu.Lock()
			s.timer = nil
			s.mu.Unlock()
			if err := s.Flush(); err != nil {
				s.logger.Error("debounced flush failed", "error", err)
			}
		})
	}
}

// writeFile persists one conversation atomically.
func (s *ConversationStore) writeFile(conv *model.Conversation) error {
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(s.filePath(conv.ID), data, 0o644)
}

// readFile loads one conversation from disk.
func (s *ConversationStore) readFile(id string) (*model.Conversation, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// enforceLimit deletes the oldest conversations past the cap.
func (s *ConversationStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.maxConversations {
		return
	}
	// List is newest-first; everything past the cap goes.
	for _, meta := range metas[s.maxConversations:] {
		if err := s.Delete(meta.ID); err != nil {
			s.logger.Warn("failed to evict conversation", "id", meta.ID, "error", err)
		}
	}
}

func (s *ConversationStore) filePath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// metaOf derives listing metadata. The preview falls back to the title
// when the conversation has no user message yet.
func metaOf(conv *model.Conversation) ConversationMeta {
	preview := util.CollapseSpace(conv.FirstUserText())
	if preview == "" {
		preview = conv.Title
	}
	return ConversationMeta{
		ID:           conv.ID,
		Title:        conv.Title,
		Model:        conv.Model,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
		MessageCount: len(conv.Messages),
		Preview:      util.TruncateRunes(preview, previewMaxRunes),
	}
}

func containsMessage(conv *model.Conversation, id string) bool {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].ID == id {
			return true
		}
	}
	return false
}
