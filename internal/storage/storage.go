// Package storage defines the key-value backend the snapshot is persisted to,
// plus in-memory and file implementations and wrapping decorators.
package storage

import (
	"context"
	"sync"

	"github.com/and161185/feedlog/internal/errs"
)

// Storage is a durable key-value store holding opaque blobs.
type Storage interface {
	// Get returns the value for key, or errs.ErrNotFound if it was never set.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the value for key.
	Set(ctx context.Context, key string, value []byte) error
}

// Memory is a Storage kept in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ Storage = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{data: map[string][]byte{}} }

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
