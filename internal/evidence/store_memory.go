package evidence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps evidence items in process memory, for tests and
// single-node dev runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	items   map[domain.EvidenceID]*Item
	numbers map[string]bool
	// seq feeds evidence number allocation per year.
	seq map[int]int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		items:   make(map[domain.EvidenceID]*Item),
		numbers: make(map[string]bool),
		seq:     make(map[int]int64),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; ok {
		return sentinel.ErrConflict
	}
	if s.numbers[item.EvidenceNumber] {
		return sentinel.ErrConflict
	}
	cp := *item
	s.items[item.ID] = &cp
	s.numbers[item.EvidenceNumber] = true
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id domain.EvidenceID) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *InMemoryStore) SetContentDigest(_ context.Context, id domain.EvidenceID, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if item.ContentDigest != "" {
		return sentinel.ErrInvalidState
	}
	item.ContentDigest = digest
	item.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) UpdateMetadata(_ context.Context, id domain.EvidenceID, storageLoc, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	item.StorageLoc = storageLoc
	item.Notes = notes
	item.UpdatedAt = time.Now()
	return nil
}

func (s *InMemoryStore) MarkDisposed(_ context.Context, id domain.EvidenceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !item.Disposed {
		item.Disposed = true
		item.UpdatedAt = time.Now()
	}
	return nil
}

func (s *InMemoryStore) NextEvidenceNumber(_ context.Context, year int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[year]++
	return fmt.Sprintf("EVD-%d-%06d", year, s.seq[year]), nil
}
