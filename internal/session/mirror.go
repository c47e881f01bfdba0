// Package session holds the shell-side mirror of the hosted application's
// session token.
package session

import (
	"fmt"
	"sync"
)

// TokenKey is the persistent-storage key the hosted content keeps its
// session token under, and the key the shell mirrors it under.
const TokenKey = "webshell.auth_token"

// SecureStore is the secure persistence consumed by the mirror.
type SecureStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Mirror is the shell's write-through copy of the session token. The hosted
// web content owns the token; the mirror exists to re-inject it after a
// reload and to authorize background operations. Writes go to the secure
// store before the in-memory copy so a crash mid-write is recoverable at
// next launch by Resync.
type Mirror struct {
	store SecureStore

	mu    sync.RWMutex
	token string
}

// NewMirror creates a mirror over the given secure store.
func NewMirror(store SecureStore) *Mirror {
	return &Mirror{store: store}
}

// Resync loads the persisted token into memory. Called at launch.
func (m *Mirror) Resync() error {
	token, err := m.store.Get(TokenKey)
	if err != nil {
		return fmt.Errorf("failed to resync session token: %w", err)
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Set persists the token and updates the in-memory copy.
func (m *Mirror) Set(token string) error {
	if err := m.store.Set(TokenKey, token); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Clear removes the persisted token. The in-memory copy is cleared even
// when the store fails: a stale mirror after logout is worse than a stale
// file.
func (m *Mirror) Clear() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()

	if err := m.store.Delete(TokenKey); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	return nil
}

// Token returns the mirrored token, empty when unauthenticated.
func (m *Mirror) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Authenticated reports whether a token is currently mirrored.
func (m *Mirror) Authenticated() bool {
	return m.Token() != ""
}
