package sdk

import "github.com/celerix-dev/celerix-keystore/internal/engine"

// MemoryStore is a Keystore held only in memory.
type MemoryStore = engine.MemStore

// NewMemory returns a MemoryStore holding a copy of initial.
func NewMemory(initial map[string]string) *MemoryStore {
	return engine.NewMemStore(initial)
}
