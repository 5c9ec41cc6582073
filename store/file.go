package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	auth "github.com/goliatone/go-donor-auth"
)

var _ auth.TokenStore = &FileStore{}

// FileStore persists named token slots in a JSON file. A missing file is an
// empty store.
type FileStore struct {
	mu   sync.Mutex
	path string
	key  string
}

// NewFileStore returns a store for the slot key in the file at path
func NewFileStore(path, key string) *FileStore {
	if key == "" {
		key = auth.DefaultTokenKey
	}
	return &FileStore{path: path, key: key}
}

// DefaultPath returns the per user location of the session file
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "donorctl", "session.json"), nil
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		return err
	}
	slots[s.key] = token
	return s.write(slots)
}

func (s *FileStore) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		return "", err
	}

	token, ok := slots[s.key]
	if !ok || token == "" {
		return "", auth.ErrTokenNotFound
	}
	return token, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := slots[s.key]; !ok {
		return nil
	}

	delete(slots, s.key)
	return s.write(slots)
}

func (s *FileStore) load() (map[string]string, error) {
	slots := map[string]string{}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return slots, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	if len(raw) == 0 {
		return slots, nil
	}

	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", s.path, err)
	}
	return slots, nil
}

func (s *FileStore) write(slots map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	raw, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
