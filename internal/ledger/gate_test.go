package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"custodia/internal/evidence"
	"custodia/internal/integrity"
	"custodia/internal/ledger/lock"
	"custodia/internal/platform/metrics"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// disposerSpy records MarkDisposed calls from the gate.
type disposerSpy struct {
	disposed []domain.EvidenceID
}

func (d *disposerSpy) MarkDisposed(_ context.Context, id domain.EvidenceID) error {
	d.disposed = append(d.disposed, id)
	return nil
}

type GateSuite struct {
	suite.Suite
	ctx      context.Context
	store    *InMemoryStore
	items    *evidence.InMemoryStore
	service  *Service
	gate     *Gate
	disposer *disposerSpy
	itemSeq  int

	requester domain.UserID
	approver  domain.UserID
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.items = evidence.NewInMemoryStore()
	s.disposer = &disposerSpy{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	met := metrics.New(prometheus.NewRegistry())
	locker := lock.NewKeyedMutex(200 * time.Millisecond)

	s.service = NewService(s.store, s.items, locker, nil, met, logger)
	s.gate = NewGate(s.store, NopTxRunner{}, s.disposer, locker, nil, met, logger)

	s.requester = domain.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111"))
	s.approver = domain.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222"))
}

// newChain registers a fresh item and opens its custody chain with SEIZED.
func (s *GateSuite) newChain() domain.EvidenceID {
	s.itemSeq++
	item := &evidence.Item{
		ID:             domain.NewEvidenceID(),
		CaseID:         domain.CaseID(uuid.MustParse("33333333-3333-3333-3333-333333333333")),
		EvidenceNumber: fmt.Sprintf("EVD-2026-%06d", s.itemSeq),
		Label:          "seized phone",
		Category:       domain.CategoryDigital,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.Require().NoError(s.items.Insert(s.ctx, item))

	_, err := s.service.Append(s.ctx, AppendInput{
		ItemID:      item.ID,
		Action:      domain.ActionSeized,
		ToCustodian: "officer-lee",
		RecordedBy:  s.requester,
	})
	s.Require().NoError(err)
	return item.ID
}

// appendGated records one gated action and returns its provisional entry.
func (s *GateSuite) appendGated(itemID domain.EvidenceID, action domain.CustodyAction, to string) *Entry {
	entry, err := s.service.Append(s.ctx, AppendInput{
		ItemID:        itemID,
		Action:        action,
		FromCustodian: "officer-lee",
		ToCustodian:   to,
		Purpose:       "retention period expired",
		RecordedBy:    s.requester,
	})
	s.Require().NoError(err)
	s.Require().Equal(StatusProvisional, entry.Status)
	return entry
}

func (s *GateSuite) TestApprove() {
	s.Run("unknown entry is not found", func() {
		_, err := s.gate.Approve(s.ctx, domain.NewEntryID(), s.approver)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("ungated entry cannot be approved", func() {
		itemID := s.newChain()
		history, err := s.service.History(s.ctx, itemID)
		s.Require().NoError(err)
		_, err = s.gate.Approve(s.ctx, history[0].ID, s.approver)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requester cannot approve their own entry", func() {
		itemID := s.newChain()
		entry := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")
		_, err := s.gate.Approve(s.ctx, entry.ID, s.requester)
		s.True(dErrors.HasCode(err, dErrors.CodeSelfApproval))

		// The gate must still be pending after the violation.
		gate, err := s.store.GetGate(s.ctx, entry.ID)
		s.Require().NoError(err)
		s.Equal(GatePending, gate.Status)
	})

	s.Run("approval finalizes and extends the chain", func() {
		itemID := s.newChain()
		entry := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")
		finalized, err := s.gate.Approve(s.ctx, entry.ID, s.approver)
		s.Require().NoError(err)

		s.Equal(StatusFinal, finalized.Status)
		s.Equal(int64(2), finalized.Seq)
		s.NotEmpty(finalized.Digest)
		s.Equal(integrity.DigestEntry(chainFields(finalized), finalized.PrevDigest), finalized.Digest)

		report, err := s.service.VerifyChain(s.ctx, itemID)
		s.Require().NoError(err)
		s.True(report.OK)
		s.Equal(2, report.Checked)

		s.Equal([]domain.EvidenceID{itemID}, s.disposer.disposed,
			"disposal must mirror into the registry")
	})

	s.Run("second decision is already resolved", func() {
		itemID := s.newChain()
		entry := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")
		_, err := s.gate.Approve(s.ctx, entry.ID, s.approver)
		s.Require().NoError(err)
		_, err = s.gate.Approve(s.ctx, entry.ID, s.approver)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyResolved))
	})
}

func (s *GateSuite) TestApproveOrdering() {
	s.Run("later gate cannot resolve before an earlier one", func() {
		itemID := s.newChain()
		first := s.appendGated(itemID, domain.ActionReturned, "owner")
		second := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")

		_, err := s.gate.Approve(s.ctx, second.ID, s.approver)
		s.True(dErrors.HasCode(err, dErrors.CodeOutOfOrderApproval))

		_, err = s.gate.Approve(s.ctx, first.ID, s.approver)
		s.Require().NoError(err)
	})

	s.Run("rejecting the earlier gate unblocks the later one", func() {
		itemID := s.newChain()
		first := s.appendGated(itemID, domain.ActionReturned, "owner")
		second := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")

		s.Require().NoError(s.gate.Reject(s.ctx, first.ID, s.approver, "owner address unverified"))

		finalized, err := s.gate.Approve(s.ctx, second.ID, s.approver)
		s.Require().NoError(err)
		s.Equal(StatusFinal, finalized.Status)
		s.Equal(int64(2), finalized.Seq)
	})
}

func (s *GateSuite) TestApproveAfterChainClosed() {
	itemID := s.newChain()
	first := s.appendGated(itemID, domain.ActionReturned, "owner")
	second := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")

	// Approving RETURNED closes the chain; the still-pending DISPOSED gate
	// can only be rejected now.
	_, err := s.gate.Approve(s.ctx, first.ID, s.approver)
	s.Require().NoError(err)

	_, err = s.gate.Approve(s.ctx, second.ID, s.approver)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	s.NoError(s.gate.Reject(s.ctx, second.ID, s.approver, "item already returned"))
}

func (s *GateSuite) TestReject() {
	s.Run("reason is required", func() {
		itemID := s.newChain()
		entry := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")
		err := s.gate.Reject(s.ctx, entry.ID, s.approver, "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requester cannot reject their own entry", func() {
		itemID := s.newChain()
		entry := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")
		err := s.gate.Reject(s.ctx, entry.ID, s.requester, "changed my mind")
		s.True(dErrors.HasCode(err, dErrors.CodeSelfApproval))
	})

	s.Run("rejected entry never enters history", func() {
		itemID := s.newChain()
		entry := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")
		s.Require().NoError(s.gate.Reject(s.ctx, entry.ID, s.approver, "retention period still running"))

		history, err := s.service.History(s.ctx, itemID)
		s.Require().NoError(err)
		s.Len(history, 1)

		stored, err := s.store.GetEntry(s.ctx, entry.ID)
		s.Require().NoError(err)
		s.Equal(StatusProvisional, stored.Status, "rejected entries are retained, not deleted")

		gate, err := s.store.GetGate(s.ctx, entry.ID)
		s.Require().NoError(err)
		s.Equal(GateRejected, gate.Status)
		s.Equal("retention period still running", gate.Reason)
	})

	s.Run("custody continues after a rejected disposal", func() {
		itemID := s.newChain()
		entry := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")
		s.Require().NoError(s.gate.Reject(s.ctx, entry.ID, s.approver, "case reopened"))

		next, err := s.service.Append(s.ctx, AppendInput{
			ItemID:        itemID,
			Action:        domain.ActionTransferred,
			FromCustodian: "officer-lee",
			ToCustodian:   "lab-tech",
			RecordedBy:    s.requester,
		})
		s.Require().NoError(err)
		s.Equal(int64(2), next.Seq, "rejected entries must not consume sequence numbers")
	})
}

func (s *GateSuite) TestPending() {
	s.Run("empty queue", func() {
		itemID := s.newChain()
		queue, err := s.gate.Pending(s.ctx, itemID)
		s.Require().NoError(err)
		s.Empty(queue)
	})

	s.Run("queue preserves creation order", func() {
		itemID := s.newChain()
		first := s.appendGated(itemID, domain.ActionReturned, "owner")
		second := s.appendGated(itemID, domain.ActionDisposed, "destruction-unit")

		queue, err := s.gate.Pending(s.ctx, itemID)
		s.Require().NoError(err)
		s.Require().Len(queue, 2)
		s.Equal(first.ID, queue[0].Entry.ID)
		s.Equal(second.ID, queue[1].Entry.ID)
	})
}
