package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps the ledger in process memory. It favors clarity over
// performance and is the store used by unit tests and single-node dev runs.
// Entries are copied on the way in and out so callers can never mutate
// history through a shared pointer.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.EntryID]*Entry
	// byItem preserves creation order per item, which is the order the
	// pending-approval queue is served in.
	byItem map[domain.EvidenceID][]domain.EntryID
	gates  map[domain.EntryID]*ApprovalRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[domain.EntryID]*Entry),
		byItem:  make(map[domain.EvidenceID][]domain.EntryID),
		gates:   make(map[domain.EntryID]*ApprovalRecord),
	}
}

func (s *InMemoryStore) InsertEntry(_ context.Context, e *Entry, gate *ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *e
	s.entries[e.ID] = &cp
	s.byItem[e.ItemID] = append(s.byItem[e.ItemID], e.ID)
	if gate != nil {
		gcp := *gate
		s.gates[gate.EntryID] = &gcp
	}
	return nil
}

func (s *InMemoryStore) GetEntry(_ context.Context, entryID domain.EntryID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *InMemoryStore) ListFinalByItem(_ context.Context, itemID domain.EvidenceID) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var final []*Entry
	for _, id := range s.byItem[itemID] {
		if e := s.entries[id]; e.IsFinal() {
			cp := *e
			final = append(final, &cp)
		}
	}
	sort.Slice(final, func(i, j int) bool { return final[i].Seq < final[j].Seq })
	return final, nil
}

func (s *InMemoryStore) LastFinal(_ context.Context, itemID domain.EvidenceID) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last *Entry
	for _, id := range s.byItem[itemID] {
		if e := s.entries[id]; e.IsFinal() && (last == nil || e.Seq > last.Seq) {
			last = e
		}
	}
	if last == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *last
	return &cp, nil
}

func (s *InMemoryStore) FinalizeEntry(_ context.Context, entryID domain.EntryID, seq int64, prevDigest, digest string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if e.Status != StatusProvisional {
		return sentinel.ErrInvalidState
	}
	for _, id := range s.byItem[e.ItemID] {
		if other := s.entries[id]; other.IsFinal() && other.Seq == seq {
			return sentinel.ErrConflict
		}
	}
	e.Seq = seq
	e.PrevDigest = prevDigest
	e.Digest = digest
	e.Status = StatusFinal
	finalizedAt := at
	e.FinalizedAt = &finalizedAt
	return nil
}

func (s *InMemoryStore) GetGate(_ context.Context, entryID domain.EntryID) (*ApprovalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.gates[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *InMemoryStore) ListPendingByItem(_ context.Context, itemID domain.EvidenceID) ([]*ApprovalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*ApprovalRecord
	for _, id := range s.byItem[itemID] {
		if g, ok := s.gates[id]; ok && g.Status == GatePending {
			cp := *g
			pending = append(pending, &cp)
		}
	}
	return pending, nil
}

func (s *InMemoryStore) ResolveGate(_ context.Context, entryID domain.EntryID, status GateStatus, approver domain.UserID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gates[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if g.Status != GatePending {
		return sentinel.ErrAlreadyResolved
	}
	g.Status = status
	g.Approver = approver
	g.Reason = reason
	decidedAt := at
	g.DecidedAt = &decidedAt
	return nil
}
