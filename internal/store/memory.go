package store

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/umit-portal/internal/domain"
)

// MemoryStore keeps sessions in process memory. Records are copied on the
// way in and out so callers never share state.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.SessionRecord
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.SessionRecord)}
}

func (m *MemoryStore) GetSession(_ context.Context, sessionID string) (*domain.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) UpsertSession(_ context.Context, rec *domain.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := rec.Clone()
	if existing, ok := m.sessions[rec.SessionID]; ok {
		c.CreatedAt = existing.CreatedAt
	}
	m.sessions[rec.SessionID] = c
	return nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) GetExpiredSessions(_ context.Context, ttl time.Duration) ([]*domain.SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	threshold := time.Now().Add(-ttl)
	var expired []*domain.SessionRecord
	for _, rec := range m.sessions {
		if rec.UpdatedAt.Before(threshold) {
			expired = append(expired, rec.Clone())
		}
	}
	return expired, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
