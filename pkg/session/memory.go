package session

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps views in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	views map[string]*View
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{views: make(map[string]*View)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*View, error) {
	s.mu.RLock()
	v, ok := s.views[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if v.IsExpired() {
		s.mu.Lock()
		delete(s.views, id)
		s.mu.Unlock()
		return nil, nil
	}
	return cloneView(v), nil
}

func (s *MemoryStore) Set(ctx context.Context, v *View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[v.ID] = cloneView(v)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, id)
	return nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, v := range s.views {
		if now.After(v.ExpiresAt) {
			delete(s.views, id)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored views, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// cloneView keeps callers from mutating stored state through a shared slice.
func cloneView(v *View) *View {
	c := *v
	c.Collapsed = slices.Clone(v.Collapsed)
	if c.Collapsed == nil {
		c.Collapsed = []string{}
	}
	return &c
}

var _ Store = (*MemoryStore)(nil)
