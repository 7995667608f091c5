package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("blob not found")

// Store keeps uploaded documents and sliced artifacts as sqlite blobs keyed
// by opaque refs. Job state itself never touches disk; only document bytes
// do, so the agent can re-download an artifact cheaply.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS blobs (
			ref        TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, data []byte) (string, error) {
	ref := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, "INSERT INTO blobs (ref, data) VALUES (?, ?)", ref, data); err != nil {
		return "", fmt.Errorf("failed to save blob: %w", err)
	}
	return ref, nil
}

func (s *Store) Read(ctx context.Context, ref string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE ref = ?", ref).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Delete is idempotent: removing an absent ref succeeds.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE ref = ?", ref); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Count reports how many blobs are currently held.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM blobs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count blobs: %w", err)
	}
	return count, nil
}
