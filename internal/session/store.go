// Package session owns the client-side authentication lifecycle: the stored
// token, its issue timestamp, and the revalidation policy that decides when
// a held token may be used without a network round-trip.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/me/reportkit/internal/config"
	"github.com/me/reportkit/pkg/model"
)

const sessionFileName = "session.json"

// Store persists the session between runs. Implementations must treat an
// absent session as (nil, nil), not an error.
type Store interface {
	Load() (*model.Session, error)
	Save(sess *model.Session) error
	Clear() error
}

// FileStore keeps the session as a JSON file, by default at
// ~/.reportkit/session.json.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed session store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultSessionPath returns the default session file path.
func DefaultSessionPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sessionFileName), nil
}

// Load reads the stored session. Returns (nil, nil) when no session exists.
func (s *FileStore) Load() (*model.Session, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &sess, nil
}

// Save writes the session to disk with owner-only permissions; the file
// holds a live bearer token.
func (s *FileStore) Save(sess *model.Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing an absent session is a no-op.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	Sess *model.Session
}

func (s *MemStore) Load() (*model.Session, error) { return s.Sess, nil }

func (s *MemStore) Save(sess *model.Session) error {
	s.Sess = sess
	return nil
}

func (s *MemStore) Clear() error {
	s.Sess = nil
	return nil
}
