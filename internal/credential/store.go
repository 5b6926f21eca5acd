// Package credential persists the single bearer token that proves the
// session.
//
// There is exactly one credential per process. It is created by a successful
// token exchange, read before every authenticated request and cleared on
// logout. Both implementations are safe for concurrent use.
package credential

import (
	"context"
	"sync"
)

// Store reads and writes the bearer token.
type Store interface {
	// Get returns the stored token and whether one exists.
	Get(ctx context.Context) (token string, ok bool, err error)
	// Set stores token. An empty token clears the store.
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory only. It is what the server
// falls back to when no passphrase is configured, and what tests use.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, m.token != "", nil
}

func (m *MemoryStore) Set(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	return m.Set(ctx, "")
}
