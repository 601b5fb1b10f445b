package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Cipher transforms values on their way to and from disk.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// LocalStore is the client's durable key/value storage: a single SQLite table
// with localStorage semantics (string keys, string values, last write wins).
type LocalStore struct {
	db     *sql.DB
	cipher Cipher
	mu     sync.Mutex
}

const localStoreSchema = `
CREATE TABLE IF NOT EXISTS local_storage (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// OpenLocalStore opens (creating if needed) the store at path. A nil cipher
// stores values as-is.
func OpenLocalStore(path string, cipher Cipher) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	// Create the file up front so it never exists with wider permissions
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create local store: %w", err)
	}
	f.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(localStoreSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize local store: %w", err)
	}

	return &LocalStore{db: db, cipher: cipher}, nil
}

// GetItem returns the value stored under key. ok is false when the key is absent.
func (s *LocalStore) GetItem(key string) (value string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw []byte
	err = s.db.QueryRow(`SELECT value FROM local_storage WHERE key = ?`, key).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}

	if s.cipher != nil {
		raw, err = s.cipher.Decrypt(raw)
		if err != nil {
			return "", false, fmt.Errorf("failed to decrypt %q: %w", key, err)
		}
	}

	return string(raw), true, nil
}

// SetItem stores value under key, replacing any previous value.
func (s *LocalStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := []byte(value)
	if s.cipher != nil {
		var err error
		raw, err = s.cipher.Encrypt(raw)
		if err != nil {
			return fmt.Errorf("failed to encrypt %q: %w", key, err)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, raw, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (s *LocalStore) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove %q: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}
