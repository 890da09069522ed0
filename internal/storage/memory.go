package storage

import (
	"context"
	"sync"

	"github.com/aatumaykin/ipubot/internal/events"
	"github.com/aatumaykin/ipubot/internal/ledger"
)

// MemoryStore is a process-local backend, used by tests and dry runs.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]string
	users  map[string]ledger.User
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]string),
		users:  make(map[string]ledger.User),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// ListAll returns every event definition ordered by name.
func (s *MemoryStore) ListAll(_ context.Context) ([]events.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedEvents(s.events), nil
}

// Insert stores a new definition.
func (s *MemoryStore) Insert(_ context.Context, def events.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[def.Name]; ok {
		return events.ErrDuplicateName
	}
	s.events[def.Name] = def.Schedule
	return nil
}

// Update replaces the schedule of an existing definition.
func (s *MemoryStore) Update(_ context.Context, def events.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[def.Name]; !ok {
		return events.ErrNotFound
	}
	s.events[def.Name] = def.Schedule
	return nil
}

// Delete removes a definition.
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[name]; !ok {
		return events.ErrNotFound
	}
	delete(s.events, name)
	return nil
}

// ListUsers returns every ledger user ordered by name.
func (s *MemoryStore) ListUsers(_ context.Context) ([]ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedUsers(s.users), nil
}

// ResetUsers deletes every ledger user.
func (s *MemoryStore) ResetUsers(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.users)
	return nil
}

// AddPoints upserts the user and adds amount to its count.
func (s *MemoryStore) AddPoints(_ context.Context, id, name string, amount int64) (ledger.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		u = ledger.User{ID: id}
	}
	u.Name = name
	u.Count += amount
	s.users[id] = u
	return u, nil
}
