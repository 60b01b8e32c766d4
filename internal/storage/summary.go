package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/s33g/promptfit/internal/prompt"

	_ "modernc.org/sqlite"
)

// RedisSummaryStore keeps summaries as JSON strings under the summary key of each node id
type RedisSummaryStore struct {
	client *Client
	ttl    time.Duration
}

// NewRedisSummaryStore creates a summary store on client. A zero ttl keeps summaries forever.
func NewRedisSummaryStore(client *Client, ttl time.Duration) *RedisSummaryStore {
	return &RedisSummaryStore{client: client, ttl: ttl}
}

// Get returns the summary for id, or nil if none is stored
func (s *RedisSummaryStore) Get(ctx context.Context, id string) (*prompt.Summary, error) {
	data, err := s.client.rdb.Get(ctx, s.client.keys.Summary(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	var sum prompt.Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return &sum, nil
}

// Set stores the summary for id
func (s *RedisSummaryStore) Set(ctx context.Context, id string, sum prompt.Summary) error {
	data, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := s.client.rdb.Set(ctx, s.client.keys.Summary(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	return nil
}

// SQLiteSummaryStore keeps summaries in a local SQLite database
type SQLiteSummaryStore struct {
	db *sql.DB
}

// NewSQLiteSummaryStore opens (or creates) the database at path
func NewSQLiteSummaryStore(path string) (*SQLiteSummaryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS summaries (
			id          TEXT PRIMARY KEY,
			content     TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &SQLiteSummaryStore{db: db}, nil
}

// Get returns the summary for id, or nil if none is stored
func (s *SQLiteSummaryStore) Get(ctx context.Context, id string) (*prompt.Summary, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM summaries WHERE id = ?`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return &prompt.Summary{Content: content}, nil
}

// Set stores the summary for id, replacing any previous one
func (s *SQLiteSummaryStore) Set(ctx context.Context, id string, sum prompt.Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (id, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at
	`, id, sum.Content, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set summary: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteSummaryStore) Close() error {
	return s.db.Close()
}
