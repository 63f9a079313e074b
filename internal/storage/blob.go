package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/findosh/contactdesk/internal/config"
)

// Persistence keys of the two application stores
const (
	SessionKey = "auth-storage"
	LedgerKey  = "submissions-storage"
)

// ErrNotFound is returned by Load when nothing was saved under the key yet
var ErrNotFound = errors.New("blob not found")

// Blob is an opaque value persisted under a fixed key
type Blob interface {
	Key() string
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Provider hands out blobs by key
type Provider interface {
	Blob(key string) Blob
	Close() error
}

// Open returns the provider selected by cfg.StorageDriver
func Open(cfg *config.Config) (Provider, error) {
	switch cfg.StorageDriver {
	case config.StorageSQLite:
		db, err := New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case config.StorageFile:
		return NewFileStore(cfg.DataDir)
	case config.StorageMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// PersistenceWarning reports a failed read or write of a blob.
// Stores log it and keep their in-memory state authoritative.
type PersistenceWarning struct {
	Key string
	Op  string
	Err error
}

func (w *PersistenceWarning) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", w.Op, w.Key, w.Err)
}

func (w *PersistenceWarning) Unwrap() error {
	return w.Err
}

// envelope is the persisted layout of a store: {"state": ..., "version": 0}
type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// StateVersion is written with every blob. Older versions are not migrated.
const StateVersion = 0

// SaveState encodes state in the envelope and saves it
func SaveState(ctx context.Context, b Blob, state any) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return &PersistenceWarning{Key: b.Key(), Op: "encode", Err: err}
	}
	data, err := json.Marshal(envelope{State: raw, Version: StateVersion})
	if err != nil {
		return &PersistenceWarning{Key: b.Key(), Op: "encode", Err: err}
	}
	if err := b.Save(ctx, data); err != nil {
		return &PersistenceWarning{Key: b.Key(), Op: "save", Err: err}
	}
	return nil
}

// LoadState decodes the saved envelope into state.
// It returns false with a nil error when nothing was saved yet.
func LoadState(ctx context.Context, b Blob, state any) (bool, error) {
	data, err := b.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &PersistenceWarning{Key: b.Key(), Op: "load", Err: err}
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, &PersistenceWarning{Key: b.Key(), Op: "decode", Err: err}
	}
	if len(env.State) == 0 {
		return false, &PersistenceWarning{Key: b.Key(), Op: "decode", Err: errors.New("missing state")}
	}
	if err := json.Unmarshal(env.State, state); err != nil {
		return false, &PersistenceWarning{Key: b.Key(), Op: "decode", Err: err}
	}
	return true, nil
}

// FileStore keeps one JSON file per key in a directory
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// NewFileStore creates dir if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Blob(key string) Blob {
	return &fileBlob{store: s, key: key}
}

func (s *FileStore) Close() error { return nil }

type fileBlob struct {
	store *FileStore
	key   string
}

func (b *fileBlob) Key() string { return b.key }

func (b *fileBlob) path() (string, error) {
	if !validKey.MatchString(b.key) {
		return "", fmt.Errorf("invalid blob key %q", b.key)
	}
	return filepath.Join(b.store.dir, b.key+".json"), nil
}

func (b *fileBlob) Load(ctx context.Context) ([]byte, error) {
	path, err := b.path()
	if err != nil {
		return nil, err
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Save writes to a temp file and renames it so readers never see a partial blob
func (b *fileBlob) Save(ctx context.Context, data []byte) error {
	path, err := b.path()
	if err != nil {
		return err
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	tmp, err := os.CreateTemp(b.store.dir, b.key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// MemoryStore keeps blobs in process memory
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Blob(key string) Blob {
	return &memoryBlob{store: s, key: key}
}

func (s *MemoryStore) Close() error { return nil }

type memoryBlob struct {
	store *MemoryStore
	key   string
}

func (b *memoryBlob) Key() string { return b.key }

func (b *memoryBlob) Load(ctx context.Context) ([]byte, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	data, ok := b.store.blobs[b.key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *memoryBlob) Save(ctx context.Context, data []byte) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	b.store.blobs[b.key] = append([]byte(nil), data...)
	return nil
}
