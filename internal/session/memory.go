package session

import (
	"context"
	"sync"
	"time"

	gwerrors "product-strategy-gateway/internal/errors"
)

// MemoryStore keeps view state in process. States are stored and handed out as
// deep copies.
type MemoryStore struct {
	sessions map[string][]byte
	access   map[string]time.Time
	mutex    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		access:   make(map[string]time.Time),
	}
}

// Create stores and returns a new empty state
func (m *MemoryStore) Create(ctx context.Context) (*State, error) {
	state := NewState()
	if err := m.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Get returns a copy of the state with the given id
func (m *MemoryStore) Get(ctx context.Context, id string) (*State, error) {
	if id == "" {
		return nil, gwerrors.ErrSessionIDRequired
	}

	m.mutex.Lock()
	data, exists := m.sessions[id]
	if exists {
		m.access[id] = time.Now()
	}
	m.mutex.Unlock()

	if !exists {
		return nil, gwerrors.NewNotFoundError("session", id)
	}
	return decodeState(data)
}

// Save stores a copy of state and stamps its UpdatedAt
func (m *MemoryStore) Save(ctx context.Context, state *State) error {
	if state == nil || state.ID == "" {
		return gwerrors.ErrSessionIDRequired
	}

	state.UpdatedAt = time.Now().UTC()
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[state.ID] = data
	m.access[state.ID] = time.Now()
	return nil
}

// Delete removes a state; deleting an unknown id is not an error
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, id)
	delete(m.access, id)
	return nil
}

// CleanupExpired removes sessions that haven't been accessed within maxAge
func (m *MemoryStore) CleanupExpired(maxAge time.Duration) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, last := range m.access {
		if last.Before(cutoff) {
			delete(m.sessions, id)
			delete(m.access, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions
func (m *MemoryStore) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
