package pending

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	marker    Marker
	expiresAt time.Time
}

// MemoryStore keeps markers in process. Entries past their retention are
// swept on write; reads still return them so the guard can discard them.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]entry
	retain time.Duration
	now    func() time.Time
}

func NewMemoryStore(retain time.Duration) *MemoryStore {
	if retain <= 0 {
		retain = DefaultTTL
	}
	return &MemoryStore{
		data:   make(map[string]entry),
		retain: retain,
		now:    time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, sessionID string, m Marker) error {
	if sessionID == "" {
		return errNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, k)
		}
	}
	s.data[sessionID] = entry{
		marker:    m,
		expiresAt: m.CreatedAt().Add(s.retain),
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Marker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[sessionID]
	if !ok {
		return nil, nil
	}
	m := e.marker
	return &m, nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}
