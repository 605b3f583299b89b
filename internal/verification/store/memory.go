package store

import (
	"context"
	"sync"

	"idverify/internal/verification/models"
	"idverify/pkg/domain"
)

// Memory keeps sessions in process memory. Intended for tests and single-node
// development; it favors clarity over performance.
type Memory struct {
	mu           sync.RWMutex
	sessions     map[domain.SessionID]models.Session
	activeByUser map[domain.UserID]domain.SessionID
}

func NewMemory() *Memory {
	return &Memory{
		sessions:     make(map[domain.SessionID]models.Session),
		activeByUser: make(map[domain.UserID]domain.SessionID),
	}
}

func (m *Memory) Create(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if activeID, ok := m.activeByUser[session.UserID]; ok {
		if existing, found := m.sessions[activeID]; found && !existing.Status.IsTerminal() {
			return ErrActiveSessionExists
		}
		// Stale index entry left by a terminal session.
		delete(m.activeByUser, session.UserID)
	}

	copied := cloneSession(session)
	m.sessions[session.ID] = copied
	m.activeByUser[session.UserID] = session.ID
	return nil
}

func (m *Memory) Get(_ context.Context, id domain.SessionID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneSession(&session)
	return &out, nil
}

func (m *Memory) Update(_ context.Context, session *models.Session, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[session.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrConflict
	}

	copied := cloneSession(session)
	copied.Version = expectedVersion + 1
	m.sessions[session.ID] = copied
	session.Version = copied.Version

	if copied.Status.IsTerminal() {
		if activeID, found := m.activeByUser[copied.UserID]; found && activeID == copied.ID {
			delete(m.activeByUser, copied.UserID)
		}
	}
	return nil
}

func (m *Memory) FindActiveByUser(_ context.Context, userID domain.UserID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	activeID, ok := m.activeByUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	session, ok := m.sessions[activeID]
	if !ok || session.Status.IsTerminal() {
		return nil, ErrNotFound
	}
	out := cloneSession(&session)
	return &out, nil
}

// cloneSession deep-copies the fields that would otherwise alias caller
// memory after the store releases its lock.
func cloneSession(s *models.Session) models.Session {
	copied := *s
	if s.RequiredChallenges != nil {
		copied.RequiredChallenges = append([]domain.ChallengeType(nil), s.RequiredChallenges...)
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		copied.CompletedAt = &t
	}
	if s.Profile != nil {
		p := *s.Profile
		copied.Profile = &p
	}
	if s.DocumentValidation != nil {
		v := *s.DocumentValidation
		v.Issues = append([]string(nil), s.DocumentValidation.Issues...)
		copied.DocumentValidation = &v
	}
	return copied
}
