package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// SecureStore persists key/value pairs sealed with ChaCha20-Poly1305. The
// key file and data file live side by side under the store directory; the
// key is created on first use with owner-only permissions.
type SecureStore struct {
	dir  string
	aead cipher.AEAD

	mu     sync.Mutex
	values map[string]string
}

const (
	secureKeyFile  = "secure.key"
	secureDataFile = "secure.bin"
)

// NewSecureStore opens (or initializes) the secure store under dir.
func NewSecureStore(dir string) (*SecureStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secure store dir: %w", err)
	}

	key, err := loadOrCreateKey(filepath.Join(dir, secureKeyFile))
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	s := &SecureStore{dir: dir, aead: aead, values: make(map[string]string)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the value for key, empty when absent.
func (s *SecureStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

// Set stores the value for key and flushes to disk.
func (s *SecureStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

// Delete removes the value for key and flushes to disk.
func (s *SecureStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.flush()
}

// Clear removes every value.
func (s *SecureStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return s.flush()
}

func (s *SecureStore) load() error {
	raw, err := os.ReadFile(filepath.Join(s.dir, secureDataFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read secure store: %w", err)
	}

	nonceSize := chacha20poly1305.NonceSizeX
	if len(raw) < nonceSize {
		// Corrupt store: start over rather than brick the launch.
		return nil
	}

	plain, err := s.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil
	}

	if err := json.Unmarshal(plain, &s.values); err != nil {
		s.values = make(map[string]string)
	}
	return nil
}

func (s *SecureStore) flush() error {
	plain, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("failed to encode secure store: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, plain, nil)
	path := filepath.Join(s.dir, secureDataFile)
	if err := writeAtomic(path, sealed, 0o600); err != nil {
		return fmt.Errorf("failed to write secure store: %w", err)
	}
	return nil
}

func loadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read store key: %w", err)
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate store key: %w", err)
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write store key: %w", err)
	}
	return key, nil
}

// writeAtomic writes via a temp file and rename so a crash mid-write never
// leaves a torn store on disk.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
