// Package store owns the shared SQLite database: core tables for
// conversations and audit metadata, plus the connection that plugin
// database handles are minted from. Plugins never see this type.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the host-owned relational store.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes the database at path, creating parent directories and
// running migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The cooperative single-writer model of the host maps onto one
	// connection; this also keeps PRAGMA state consistent.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			channel TEXT NOT NULL,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(conversation_id) REFERENCES conversations(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`,
		`CREATE TABLE IF NOT EXISTS usage_counters (
			category TEXT NOT NULL,
			window_start DATETIME NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(category, window_start)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_meta (
			id TEXT PRIMARY KEY,
			gate TEXT NOT NULL,
			decision TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// DB exposes the shared connection to host-side code only (the plugin
// lifecycle manager mints namespaced handles from it).
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Message is one stored chat turn.
type Message struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// StartConversation records a new conversation.
func (s *Store) StartConversation(ctx context.Context, id, channel string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, channel) VALUES (?, ?)`, id, channel)
	return err
}

// AppendMessage stores one turn of a conversation.
func (s *Store) AppendMessage(ctx context.Context, conversationID, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, role, content) VALUES (?, ?, ?)`,
		conversationID, role, content)
	return err
}

// Messages returns a conversation's turns, oldest first.
func (s *Store) Messages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY id ASC LIMIT ?`,
		conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
