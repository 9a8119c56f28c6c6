package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions for the lifetime of the process.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Session{}}
}

func (m *MemoryStore) Load(_ context.Context, key string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return fresh(), nil
	}
	s.Order = s.Order.Clone()
	return normalize(&s), nil
}

func (m *MemoryStore) Save(_ context.Context, key string, s *Session) error {
	cp := *s
	cp.Order = s.Order.Clone()
	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
