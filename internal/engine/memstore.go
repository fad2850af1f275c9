package engine

import (
	"sort"
	"sync"

	pkgengine "github.com/celerix-dev/celerix-keystore/pkg/engine"
)

// MemStore is a thread-safe keystore held only in memory. It backs tests and
// callers that inject credentials without a file.
type MemStore struct {
	mu        sync.RWMutex
	pending   map[string]string
	committed map[string]string
	writes    int
}

// NewMemStore initializes a store with a copy of initialData.
func NewMemStore(initialData map[string]string) *MemStore {
	return &MemStore{
		pending:   copyMap(initialData),
		committed: copyMap(initialData),
	}
}

func (m *MemStore) Path() string { return pkgengine.MemoryPath }

// Read discards uncommitted changes and returns the committed contents.
func (m *MemStore) Read() (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = copyMap(m.committed)
	return copyMap(m.pending), nil
}

func (m *MemStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.pending[key]
	if !ok {
		return "", pkgengine.ErrKeyNotFound
	}
	return val, nil
}

func (m *MemStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[key] = value
	return nil
}

func (m *MemStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pending[key]; !ok {
		return pkgengine.ErrKeyNotFound
	}
	delete(m.pending, key)
	return nil
}

func (m *MemStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]string, 0, len(m.pending))
	for k := range m.pending {
		list = append(list, k)
	}
	sort.Strings(list)
	return list, nil
}

// GetAll returns a copy to prevent external mutation of the internal map.
func (m *MemStore) GetAll() (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMap(m.pending), nil
}

// Write commits pending changes.
func (m *MemStore) Write() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = copyMap(m.pending)
	m.writes++
	return nil
}

// Writes reports how many times Write was called.
func (m *MemStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func copyMap(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
