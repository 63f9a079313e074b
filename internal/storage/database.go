// Package storage persists the application's state blobs
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	db, err := sql.Open("sqlite3", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers anyway; one connection keeps :memory: coherent
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &DB{db}, nil
}

// Wrap uses an already opened connection
func Wrap(db *sql.DB) *DB {
	return &DB{db}
}

// Migrate runs database migrations
func (db *DB) Migrate() error {
	migrations := []string{
		createBlobsTable,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Blob returns the persisted value stored under key
func (db *DB) Blob(key string) Blob {
	return &sqlBlob{db: db, key: key}
}

const createBlobsTable = `
CREATE TABLE IF NOT EXISTS blobs (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

type sqlBlob struct {
	db  *DB
	key string
}

func (b *sqlBlob) Key() string { return b.key }

func (b *sqlBlob) Load(ctx context.Context) ([]byte, error) {
	var value []byte
	err := b.db.QueryRowContext(ctx, "SELECT value FROM blobs WHERE key = ?", b.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", b.key, err)
	}
	return value, nil
}

func (b *sqlBlob) Save(ctx context.Context, data []byte) error {
	query := `
		INSERT INTO blobs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := b.db.ExecContext(ctx, query, b.key, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save %s: %w", b.key, err)
	}
	return nil
}
