package repository

import (
	"context"
	"sync"
)

// MemoryStore хранит слоты в памяти процесса.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStore создает пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, slot string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.slots[slot]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStore) Put(_ context.Context, slot string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
