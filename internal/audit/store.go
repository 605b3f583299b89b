package audit

import (
	"context"
	"sync"

	"idverify/pkg/domain"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySession(ctx context.Context, sessionID domain.SessionID) ([]Event, error)
}

// MemoryStore keeps events in process memory, for tests and development.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[domain.SessionID][]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[domain.SessionID][]Event)}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SessionID] = append(s.events[event.SessionID], event)
	return nil
}

func (s *MemoryStore) ListBySession(_ context.Context, sessionID domain.SessionID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[sessionID]...), nil
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.SessionID][]Event)
}
