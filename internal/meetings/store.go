package meetings

import (
	"context"
	"sync"
)

// Store persists meeting records.
type Store interface {
	Save(ctx context.Context, m Meeting) error
	Get(ctx context.Context, id string) (Meeting, error)
}

// MemoryStore keeps meetings in process. Used when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	meetings map[string]Meeting
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{meetings: make(map[string]Meeting)}
}

func (s *MemoryStore) Save(_ context.Context, m Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = m
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meetings[id]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	return m, nil
}
