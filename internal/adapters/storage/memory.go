package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/jsamuelsen/quotebook/internal/domain"
)

// Memory is a map-backed store. Values are copied on the way in and out.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Get implements ports.KeyValueStore.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, domain.NewNotFoundError("key", key)
	}

	return slices.Clone(v), nil
}

// Set implements ports.KeyValueStore.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = slices.Clone(value)

	return nil
}

// Name implements ports.HealthChecker.
func (m *Memory) Name() string { return "storage-memory" }

// Check implements ports.HealthChecker. A map is always healthy.
func (m *Memory) Check(context.Context) error { return nil }

// Close implements io.Closer.
func (m *Memory) Close() error { return nil }
