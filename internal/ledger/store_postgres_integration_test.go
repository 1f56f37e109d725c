//go:build integration

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"custodia/internal/evidence"
	"custodia/internal/integrity"
	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

type LedgerPostgresSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *PostgresStore
	items *evidence.PostgresStore

	itemID   domain.EvidenceID
	recorder domain.UserID
}

func TestLedgerPostgresSuite(t *testing.T) {
	suite.Run(t, new(LedgerPostgresSuite))
}

func (s *LedgerPostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresStore(s.pg.DB)
	s.items = evidence.NewPostgresStore(s.pg.DB)
	s.recorder = domain.UserID(uuid.New())
}

func (s *LedgerPostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))

	now := time.Now().UTC().Truncate(time.Microsecond)
	item := &evidence.Item{
		ID:             domain.NewEvidenceID(),
		CaseID:         domain.CaseID(uuid.New()),
		EvidenceNumber: "EVD-2026-000001",
		Label:          "seized laptop",
		Category:       domain.CategoryDigital,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.Require().NoError(s.items.Insert(s.ctx, item))
	s.itemID = item.ID
}

func (s *LedgerPostgresSuite) newEntry(action domain.CustodyAction, from, to string) *Entry {
	return &Entry{
		ID:            domain.NewEntryID(),
		ItemID:        s.itemID,
		Action:        action,
		FromCustodian: from,
		ToCustodian:   to,
		RecordedBy:    s.recorder,
		RecordedVia:   "Chrome on Linux",
		Status:        StatusProvisional,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
}

// finalize assigns seq and digests the way the service does after validation.
func (s *LedgerPostgresSuite) finalize(e *Entry, seq int64, prev string) string {
	digest := integrity.DigestEntry(integrity.EntryFields{
		ItemID:     e.ItemID,
		Seq:        seq,
		Action:     e.Action,
		From:       e.FromCustodian,
		To:         e.ToCustodian,
		Location:   e.Location,
		Purpose:    e.Purpose,
		RecordedBy: e.RecordedBy,
		Timestamp:  e.CreatedAt,
	}, prev)
	s.Require().NoError(s.store.FinalizeEntry(s.ctx, e.ID, seq, prev, digest, time.Now().UTC()))
	return digest
}

func (s *LedgerPostgresSuite) TestInsertAndGet() {
	e := s.newEntry(domain.ActionSeized, "", "officer-lee")
	s.Require().NoError(s.store.InsertEntry(s.ctx, e, nil))

	got, err := s.store.GetEntry(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, got.ID)
	s.Equal(StatusProvisional, got.Status)
	s.Zero(got.Seq)
	s.Nil(got.FinalizedAt)
	s.Equal("Chrome on Linux", got.RecordedVia)
}

func (s *LedgerPostgresSuite) TestGetMissing() {
	_, err := s.store.GetEntry(s.ctx, domain.NewEntryID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *LedgerPostgresSuite) TestFinalizeEntry() {
	e := s.newEntry(domain.ActionSeized, "", "officer-lee")
	s.Require().NoError(s.store.InsertEntry(s.ctx, e, nil))

	digest := s.finalize(e, 1, integrity.GenesisDigest)

	got, err := s.store.GetEntry(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(StatusFinal, got.Status)
	s.Equal(int64(1), got.Seq)
	s.Equal(integrity.GenesisDigest, got.PrevDigest)
	s.Equal(digest, got.Digest)
	s.NotNil(got.FinalizedAt)

	s.Run("finalizing twice is invalid state", func() {
		err := s.store.FinalizeEntry(s.ctx, e.ID, 2, digest, "x", time.Now().UTC())
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("duplicate sequence conflicts", func() {
		other := s.newEntry(domain.ActionTransferred, "officer-lee", "lab-tech")
		s.Require().NoError(s.store.InsertEntry(s.ctx, other, nil))

		err := s.store.FinalizeEntry(s.ctx, other.ID, 1, integrity.GenesisDigest, "y", time.Now().UTC())
		s.ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *LedgerPostgresSuite) TestListFinalAndLastFinal() {
	s.Run("empty history", func() {
		entries, err := s.store.ListFinalByItem(s.ctx, s.itemID)
		s.Require().NoError(err)
		s.Empty(entries)

		_, err = s.store.LastFinal(s.ctx, s.itemID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	first := s.newEntry(domain.ActionSeized, "", "officer-lee")
	s.Require().NoError(s.store.InsertEntry(s.ctx, first, nil))
	d1 := s.finalize(first, 1, integrity.GenesisDigest)

	second := s.newEntry(domain.ActionTransferred, "officer-lee", "lab-tech")
	s.Require().NoError(s.store.InsertEntry(s.ctx, second, nil))
	s.finalize(second, 2, d1)

	// Provisional entries must never appear in history.
	held := s.newEntry(domain.ActionDisposed, "lab-tech", "destruction-unit")
	s.Require().NoError(s.store.InsertEntry(s.ctx, held, nil))

	entries, err := s.store.ListFinalByItem(s.ctx, s.itemID)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(int64(1), entries[0].Seq)
	s.Equal(int64(2), entries[1].Seq)

	last, err := s.store.LastFinal(s.ctx, s.itemID)
	s.Require().NoError(err)
	s.Equal(second.ID, last.ID)
}

func (s *LedgerPostgresSuite) TestGatedInsertIsAtomic() {
	e := s.newEntry(domain.ActionDisposed, "officer-lee", "destruction-unit")
	gate := &ApprovalRecord{
		EntryID:     e.ID,
		ItemID:      s.itemID,
		Status:      GatePending,
		RequestedBy: s.recorder,
		RequestedAt: e.CreatedAt,
	}
	s.Require().NoError(s.store.InsertEntry(s.ctx, e, gate))

	got, err := s.store.GetGate(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(GatePending, got.Status)
	s.Equal(s.recorder, got.RequestedBy)
	s.Nil(got.DecidedAt)
}

func (s *LedgerPostgresSuite) TestPendingQueueOrder() {
	// Identical timestamps on purpose: insertion order must still win, not
	// an id-based tie-break.
	requestedAt := time.Now().UTC().Truncate(time.Microsecond)

	var ids []domain.EntryID
	for i := 0; i < 5; i++ {
		e := s.newEntry(domain.ActionDisposed, "officer-lee", "destruction-unit")
		e.CreatedAt = requestedAt
		gate := &ApprovalRecord{
			EntryID:     e.ID,
			ItemID:      s.itemID,
			Status:      GatePending,
			RequestedBy: s.recorder,
			RequestedAt: requestedAt,
		}
		s.Require().NoError(s.store.InsertEntry(s.ctx, e, gate))
		ids = append(ids, e.ID)
	}

	pending, err := s.store.ListPendingByItem(s.ctx, s.itemID)
	s.Require().NoError(err)
	s.Require().Len(pending, 5)
	for i, gate := range pending {
		s.Equal(ids[i], gate.EntryID, "oldest request first")
	}
}

func (s *LedgerPostgresSuite) TestResolveGateOnce() {
	e := s.newEntry(domain.ActionDisposed, "officer-lee", "destruction-unit")
	gate := &ApprovalRecord{
		EntryID:     e.ID,
		ItemID:      s.itemID,
		Status:      GatePending,
		RequestedBy: s.recorder,
		RequestedAt: e.CreatedAt,
	}
	s.Require().NoError(s.store.InsertEntry(s.ctx, e, gate))

	approver := domain.UserID(uuid.New())
	s.Require().NoError(s.store.ResolveGate(s.ctx, e.ID, GateRejected, approver, "case reopened", time.Now().UTC()))

	got, err := s.store.GetGate(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(GateRejected, got.Status)
	s.Equal(approver, got.Approver)
	s.Equal("case reopened", got.Reason)
	s.NotNil(got.DecidedAt)

	err = s.store.ResolveGate(s.ctx, e.ID, GateApproved, approver, "", time.Now().UTC())
	s.ErrorIs(err, sentinel.ErrAlreadyResolved)

	// Pending queue no longer carries the resolved gate.
	pending, err := s.store.ListPendingByItem(s.ctx, s.itemID)
	s.Require().NoError(err)
	s.Empty(pending)
}
