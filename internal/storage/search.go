// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"strings"
)

// Search finds conversations whose messages match the query, best match
// first. With a search index attached the match is full-text; without
// one it degrades to a case-insensitive substring scan. An empty query
// lists everything.
func (s *ConversationStore) Search(ctx context.Context, query string) ([]ConversationMeta, error) {
	if strings.TrimSpace(query) == "" {
		return s.List()
	}
	if s.index != nil {
		return s.searchIndexed(ctx, query)
	}
	return s.searchScan(query)
}

// searchIndexed resolves FTS hits to conversation metadata, keeping rank
// order and deduplicating by conversation.
func (s *ConversationStore) searchIndexed(ctx context.Context, query string) ([]ConversationMeta, error) {
	hits, err := s.index.Search(ctx, query, 100)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var metas []ConversationMeta
	for _, hit := range hits {
		if _, ok := seen[hit.ConversationID]; ok {
			continue
		}
		seen[hit.ConversationID] = struct{}{}

		conv, err := s.Load(hit.ConversationID)
		if err != nil {
			// Indexed but since deleted; skip quietly.
			continue
		}
		meta := metaOf(conv)
		if hit.Snippet != "" {
			meta.Preview = hit.Snippet
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// searchScan is the index-free fallback: load everything, substring-match
// titles and message content.
func (s *ConversationStore) searchScan(query string) ([]ConversationMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []ConversationMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) {
			results = append(results, meta)
			continue
		}
		conv, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, msg := range conv.Messages {
			if strings.Contains(strings.ToLower(msg.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}
