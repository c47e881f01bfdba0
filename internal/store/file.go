package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore is the general, non-secure key/value store for user data the
// hosted application asks the shell to keep.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

const userDataFile = "user.json"

// NewFileStore opens (or initializes) the general store under dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}

	s := &FileStore{
		path:   filepath.Join(dir, userDataFile),
		values: make(map[string]string),
	}

	raw, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read store: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.values); err != nil {
			// Corrupt file: start over rather than brick the launch.
			s.values = make(map[string]string)
		}
	}
	return s, nil
}

// Get returns the value for key, empty when absent.
func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// Set stores the value for key.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

// Delete removes the value for key.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.flush()
}

// Clear removes every value. Used on logout.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return s.flush()
}

func (s *FileStore) flush() error {
	raw, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}
	if err := writeAtomic(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	return nil
}
