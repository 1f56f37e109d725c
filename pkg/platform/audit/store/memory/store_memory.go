// Package memory is the in-process audit store, used in tests and dev runs.
package memory

import (
	"context"
	"sync"

	audit "custodia/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ItemID] = append(s.events[event.ItemID], event)
	return nil
}

// ListByItem returns the events recorded for one evidence item.
func (s *InMemoryStore) ListByItem(_ context.Context, itemID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[itemID]...), nil
}
