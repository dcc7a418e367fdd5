package flash

import (
	"context"
	"sync"
)

// Memory is a map-backed Storage for tests and dry runs. It counts writes so
// callers can assert how often flash would have been touched.
type Memory struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int
}

// NewMemory returns an empty Memory storage.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, namespace, key string, capacity int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	val, ok := m.data[string(storageKey(namespace, key))]
	if !ok {
		return nil, ErrNotFound
	}
	return bounded(val, capacity), nil
}

func (m *Memory) Put(ctx context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[string(storageKey(namespace, key))] = stored
	m.writes++
	return nil
}

// Writes reports how many Put calls succeeded.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) Close() error { return nil }
