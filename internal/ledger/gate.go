package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/integrity"
	"custodia/internal/ledger/lock"
	"custodia/internal/platform/metrics"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	audit "custodia/pkg/platform/audit"
	auditpub "custodia/pkg/platform/audit/publisher"
	"custodia/pkg/platform/sentinel"
)

// Disposer is the slice of the evidence registry the gate needs to mirror a
// finalized terminal action back into item metadata.
type Disposer interface {
	MarkDisposed(ctx context.Context, id domain.EvidenceID) error
}

// PendingApproval pairs a held entry with its approval record for the
// pending-queue view. This view, not History, is where unapproved disposals
// are visible.
type PendingApproval struct {
	Entry *Entry
	Gate  *ApprovalRecord
}

// Gate is the four-eyes approval workflow over gated custody entries. It
// shares the ledger's store and per-item locker: finalization assigns chain
// position, so it must be serialized with appends for the same item.
type Gate struct {
	store  Store
	txr    TxRunner
	items  Disposer
	locker lock.Keyed
	auditp *auditpub.Publisher
	met    *metrics.Metrics
	logger *slog.Logger
	now    func() time.Time
}

func NewGate(store Store, txr TxRunner, items Disposer, locker lock.Keyed, auditp *auditpub.Publisher, met *metrics.Metrics, logger *slog.Logger) *Gate {
	return &Gate{
		store:  store,
		txr:    txr,
		items:  items,
		locker: locker,
		auditp: auditp,
		met:    met,
		logger: logger,
		now:    time.Now,
	}
}

// Approve resolves a PENDING gate as APPROVED and finalizes its entry: the
// entry takes the next sequence number and chains its digest off whatever is
// the last FINAL digest at this moment. Finalization order, not creation
// order, determines chain position - which is why approvals for one item must
// happen in creation order (OutOfOrderApproval otherwise).
func (g *Gate) Approve(ctx context.Context, entryID domain.EntryID, approver domain.UserID) (*Entry, error) {
	entry, gate, release, err := g.begin(ctx, entryID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := g.checkResolvable(ctx, entry, gate, approver); err != nil {
		return nil, err
	}

	// FIFO per item: an earlier-created gate still pending blocks this one.
	pending, err := g.store.ListPendingByItem(ctx, entry.ItemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending approvals")
	}
	if len(pending) > 0 && pending[0].EntryID != entryID {
		g.emitViolation(ctx, entry, approver, "out of creation order")
		return nil, dErrors.New(dErrors.CodeOutOfOrderApproval,
			"an earlier custody entry for this item is still awaiting approval")
	}

	last, err := g.store.LastFinal(ctx, entry.ItemID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody state")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		last = nil
	}
	// The chain may have closed while this gate sat pending.
	if last != nil && last.Action.IsTerminal() {
		return nil, dErrors.Newf(dErrors.CodeInvalidTransition,
			"entry already %s - no further custody actions permitted", last.Action)
	}

	seq, prev := nextChainPosition(last)
	finalized := *entry
	finalized.Seq = seq
	finalized.PrevDigest = prev
	finalized.Digest = integrity.DigestEntry(chainFields(&finalized), prev)

	now := g.now()
	err = g.txr.RunInTx(ctx, func(ctx context.Context) error {
		if err := g.store.ResolveGate(ctx, entryID, GateApproved, approver, "", now); err != nil {
			return err
		}
		return g.store.FinalizeEntry(ctx, entryID, seq, prev, finalized.Digest, now)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyResolved) {
			return nil, dErrors.New(dErrors.CodeAlreadyResolved, "approval already decided")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize custody entry")
	}
	finalized.Status = StatusFinal
	finalizedAt := now
	finalized.FinalizedAt = &finalizedAt

	if finalized.Action == domain.ActionDisposed && g.items != nil {
		if err := g.items.MarkDisposed(ctx, finalized.ItemID); err != nil {
			// The ledger already holds the truth; the mirror flag is
			// eventually consistent.
			g.logger.WarnContext(ctx, "failed to mirror disposed flag", "item_id", finalized.ItemID.String(), "error", err)
		}
	}

	g.met.ApprovalsResolved.WithLabelValues("approved").Inc()
	g.emit(ctx, audit.Event{
		ItemID:   finalized.ItemID.String(),
		EntryID:  entryID.String(),
		Actor:    approver.String(),
		Action:   string(audit.EventEntryApproved),
		Decision: "approved",
	})
	g.logger.InfoContext(ctx, "custody entry approved",
		"item_id", finalized.ItemID.String(),
		"entry_id", entryID.String(),
		"seq", seq,
	)
	return &finalized, nil
}

// Reject resolves a PENDING gate as REJECTED. The entry stays PROVISIONAL
// forever: retained for audit, excluded from history, and never a valid
// predecessor for transition checks. Rejection needs no FIFO check - it can
// only unblock later approvals, never reorder the chain.
func (g *Gate) Reject(ctx context.Context, entryID domain.EntryID, approver domain.UserID, reason string) error {
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}

	entry, gate, release, err := g.begin(ctx, entryID)
	if err != nil {
		return err
	}
	defer release()

	if err := g.checkResolvable(ctx, entry, gate, approver); err != nil {
		return err
	}

	if err := g.store.ResolveGate(ctx, entryID, GateRejected, approver, reason, g.now()); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyResolved) {
			return dErrors.New(dErrors.CodeAlreadyResolved, "approval already decided")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reject custody entry")
	}

	g.met.ApprovalsResolved.WithLabelValues("rejected").Inc()
	g.emit(ctx, audit.Event{
		ItemID:   entry.ItemID.String(),
		EntryID:  entryID.String(),
		Actor:    approver.String(),
		Action:   string(audit.EventEntryRejected),
		Decision: "rejected",
		Reason:   reason,
	})
	g.logger.InfoContext(ctx, "custody entry rejected",
		"item_id", entry.ItemID.String(),
		"entry_id", entryID.String(),
	)
	return nil
}

// Pending returns the item's approval queue in the order decisions must be
// made.
func (g *Gate) Pending(ctx context.Context, itemID domain.EvidenceID) ([]*PendingApproval, error) {
	gates, err := g.store.ListPendingByItem(ctx, itemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending approvals")
	}
	queue := make([]*PendingApproval, 0, len(gates))
	for _, gate := range gates {
		entry, err := g.store.GetEntry(ctx, gate.EntryID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load gated entry")
		}
		queue = append(queue, &PendingApproval{Entry: entry, Gate: gate})
	}
	return queue, nil
}

// begin loads the entry and takes its item lock, then reloads the gate under
// the lock so the resolvable checks see current state.
func (g *Gate) begin(ctx context.Context, entryID domain.EntryID) (*Entry, *ApprovalRecord, func(), error) {
	entry, err := g.store.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, nil, dErrors.New(dErrors.CodeNotFound, "custody entry not found")
		}
		return nil, nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody entry")
	}

	release, err := g.locker.Acquire(ctx, entry.ItemID.String())
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			g.met.LockTimeouts.Inc()
			return nil, nil, nil, dErrors.New(dErrors.CodeBusy, "evidence item is busy - try again")
		}
		return nil, nil, nil, dErrors.Wrap(err, dErrors.CodeTimeout, "approval cancelled while waiting for item lock")
	}

	gate, err := g.store.GetGate(ctx, entryID)
	if err != nil {
		release()
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, nil, dErrors.New(dErrors.CodeValidation, "custody entry is not gated")
		}
		return nil, nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load approval record")
	}
	return entry, gate, release, nil
}

func (g *Gate) checkResolvable(ctx context.Context, entry *Entry, gate *ApprovalRecord, approver domain.UserID) error {
	if gate.Status != GatePending {
		return dErrors.New(dErrors.CodeAlreadyResolved, "approval already decided")
	}
	if approver == gate.RequestedBy {
		g.emitViolation(ctx, entry, approver, "creator cannot approve own entry")
		return dErrors.New(dErrors.CodeSelfApproval, "creator cannot decide their own custody entry")
	}
	return nil
}

func (g *Gate) emitViolation(ctx context.Context, entry *Entry, actor domain.UserID, reason string) {
	g.emit(ctx, audit.Event{
		ItemID:  entry.ItemID.String(),
		EntryID: entry.ID.String(),
		Actor:   actor.String(),
		Action:  string(audit.EventApprovalViolation),
		Reason:  reason,
	})
}

func (g *Gate) emit(ctx context.Context, event audit.Event) {
	if g.auditp == nil {
		return
	}
	if err := g.auditp.Emit(ctx, event); err != nil {
		g.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
