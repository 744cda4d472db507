package seen

import (
	"context"
	"sync"
)

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	list []Species
}

// NewMemoryStore returns a store holding a copy of list.
func NewMemoryStore(list []Species) *MemoryStore {
	return &MemoryStore{list: Dedupe(list)}
}

func (m *MemoryStore) List(context.Context) ([]Species, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Species(nil), m.list...), nil
}

func (m *MemoryStore) Replace(_ context.Context, list []Species) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append([]Species(nil), list...)
	return nil
}
