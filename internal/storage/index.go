// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/relay-tui/internal/model"
)

// searchSchema is the message search database. The FTS virtual table is
// kept in sync with the content table by triggers, so a single INSERT or
// DELETE is all the write path ever does.
const searchSchema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id TEXT NOT NULL UNIQUE,
    conversation_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    content,
    content='messages',
    content_rowid='id',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    DELETE FROM messages_fts WHERE rowid = old.id;
END;
`

const initSearchMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
`

// SearchHit is one full-text match.
type SearchHit struct {
	ConversationID string
	MessageID      string
	Role           string
	Snippet        string
}

// =============================================================================
// SEARCH INDEX
// =============================================================================

// SearchIndex is a SQLite FTS5 index over committed message text.
type SearchIndex struct {
	db *sql.DB
}

// OpenSearchIndex opens or creates the index database at path.
func OpenSearchIndex(path string) (*SearchIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}

	// SQLite allows one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure search index: %w", err)
		}
	}

	if _, err := db.Exec(searchSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create search schema: %w", err)
	}
	if _, err := db.Exec(initSearchMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init search metadata: %w", err)
	}

	return &SearchIndex{db: db}, nil
}

// Close closes the underlying database.
func (idx *SearchIndex) Close() error {
	return idx.db.Close()
}

// IndexMessage adds one committed message to the index. Re-indexing the
// same message ID is a no-op.
func (idx *SearchIndex) IndexMessage(conversationID string, msg *model.Message) error {
	if msg.Content == "" {
		return nil
	}
	_, err := idx.db.Exec(
		`INSERT OR IGNORE INTO messages (message_id, conversation_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.ID, conversationID, msg.Role.String(), msg.Content, msg.Timestamp.Unix(),
	)
	return err
}

// RemoveConversation drops every indexed message of a conversation.
func (idx *SearchIndex) RemoveConversation(conversationID string) error {
	_, err := idx.db.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	return err
}

// Search runs a full-text query, best matches first, at most one hit per
// message. An empty query returns no hits.
func (idx *SearchIndex) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := idx.db.QueryContext(ctx, `
		SELECT m.conversation_id, m.message_id, m.role,
		       snippet(messages_fts, 0, '', '', '…', 16)
		FROM messages_fts fts
		JOIN messages m ON m.id = fts.rowid
		WHERE messages_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`,
		ftsQuery, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.ConversationID, &h.MessageID, &h.Role, &h.Snippet); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// buildFTSQuery turns free text into an FTS5 query: each term quoted to
// neutralize operator characters, the last term prefix-matched so search
// feels incremental while typing.
func buildFTSQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, term := range terms {
		term = strings.ReplaceAll(term, `"`, `""`)
		quoted[i] = `"` + term + `"`
	}
	quoted[len(quoted)-1] += "*"
	return strings.Join(quoted, " ")
}
