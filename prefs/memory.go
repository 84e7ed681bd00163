package prefs

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps preferences in memory. It is used offline and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Preferences
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Preferences{}}
}

func (m *MemoryStore) Get(_ context.Context, identity string) (*Preferences, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, ErrNoIdentity
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.data[identity]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) Put(_ context.Context, identity string, p Preferences) error {
	if err := prepare(identity, &p); err != nil {
		return err
	}
	m.mu.Lock()
	m.data[identity] = p
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
