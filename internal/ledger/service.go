package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"custodia/internal/evidence"
	"custodia/internal/integrity"
	"custodia/internal/ledger/lock"
	"custodia/internal/platform/metrics"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	audit "custodia/pkg/platform/audit"
	auditpub "custodia/pkg/platform/audit/publisher"
	"custodia/pkg/platform/sentinel"
)

// verifyParallelism bounds concurrent per-item chain verification.
const verifyParallelism = 8

// AppendInput carries one custody-transfer request.
type AppendInput struct {
	ItemID        domain.EvidenceID
	Action        domain.CustodyAction
	FromCustodian string
	ToCustodian   string
	Location      string
	Purpose       string
	SignatureRef  string
	CorrectsEntry domain.EntryID
	RecordedBy    domain.UserID
	RecordedVia   string
}

// Service maintains the append-only, per-item custody sequence. All mutations
// for one item run under that item's lock; reads of finalized history do not.
type Service struct {
	store  Store
	items  evidence.Reader
	locker lock.Keyed
	auditp *auditpub.Publisher
	met    *metrics.Metrics
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store Store, items evidence.Reader, locker lock.Keyed, auditp *auditpub.Publisher, met *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		items:  items,
		locker: locker,
		auditp: auditp,
		met:    met,
		logger: logger,
		tracer: otel.Tracer("custodia/ledger"),
		now:    time.Now,
	}
}

// Append validates and records one custody entry. Gated actions (RETURNED,
// DISPOSED) are persisted PROVISIONAL with a PENDING approval record in the
// same atomic write; everything else finalizes immediately, taking the next
// sequence number and chaining its digest off the last FINAL entry.
func (s *Service) Append(ctx context.Context, in AppendInput) (*Entry, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Append",
		trace.WithAttributes(
			attribute.String("evidence.id", in.ItemID.String()),
			attribute.String("custody.action", in.Action.String()),
		))
	defer span.End()

	if !in.Action.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid custody action")
	}
	if in.ToCustodian == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "to-custodian is required")
	}

	release, err := s.acquire(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.loadItem(ctx, in.ItemID); err != nil {
		return nil, err
	}

	last, err := s.lastFinal(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(last, in.Action, in.FromCustodian); err != nil {
		return nil, err
	}

	now := s.now()
	entry := &Entry{
		ID:            domain.NewEntryID(),
		ItemID:        in.ItemID,
		Action:        in.Action,
		FromCustodian: in.FromCustodian,
		ToCustodian:   in.ToCustodian,
		Location:      in.Location,
		Purpose:       in.Purpose,
		SignatureRef:  in.SignatureRef,
		RecordedBy:    in.RecordedBy,
		RecordedVia:   in.RecordedVia,
		CorrectsEntry: in.CorrectsEntry,
		Status:        StatusProvisional,
		CreatedAt:     now,
	}

	var gate *ApprovalRecord
	if in.Action.RequiresApproval() {
		gate = &ApprovalRecord{
			EntryID:     entry.ID,
			ItemID:      in.ItemID,
			Status:      GatePending,
			RequestedBy: in.RecordedBy,
			RequestedAt: now,
		}
	} else {
		seq, prev := nextChainPosition(last)
		entry.Seq = seq
		entry.PrevDigest = prev
		entry.Digest = integrity.DigestEntry(chainFields(entry), prev)
		entry.Status = StatusFinal
		finalizedAt := now
		entry.FinalizedAt = &finalizedAt
	}

	if err := s.store.InsertEntry(ctx, entry, gate); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist custody entry")
	}

	s.met.EntriesAppended.WithLabelValues(entry.Action.String(), string(entry.Status)).Inc()
	s.emit(ctx, audit.Event{
		ItemID:  entry.ItemID.String(),
		EntryID: entry.ID.String(),
		Actor:   entry.RecordedBy.String(),
		Action:  string(audit.EventEntryAppended),
		Device:  entry.RecordedVia,
	})
	if gate != nil {
		s.emit(ctx, audit.Event{
			ItemID:  entry.ItemID.String(),
			EntryID: entry.ID.String(),
			Actor:   entry.RecordedBy.String(),
			Action:  string(audit.EventGateCreated),
		})
	}

	s.logger.InfoContext(ctx, "custody entry appended",
		"item_id", entry.ItemID.String(),
		"entry_id", entry.ID.String(),
		"action", entry.Action.String(),
		"status", string(entry.Status),
	)
	return entry, nil
}

// History returns the item's FINAL entries in sequence order. Provisional and
// rejected entries are excluded: unapproved disposals must not read as fact.
func (s *Service) History(ctx context.Context, itemID domain.EvidenceID) ([]*Entry, error) {
	if _, err := s.loadItem(ctx, itemID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListFinalByItem(ctx, itemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody history")
	}
	return entries, nil
}

// Entry fetches one custody entry.
func (s *Service) Entry(ctx context.Context, entryID domain.EntryID) (*Entry, error) {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "custody entry not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody entry")
	}
	return entry, nil
}

// VerifyChain recomputes the item's chain digests against stored values.
// A mismatch is reported, never repaired: remediation happens through new
// ledger entries because history is immutable.
func (s *Service) VerifyChain(ctx context.Context, itemID domain.EvidenceID) (integrity.ChainReport, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.VerifyChain",
		trace.WithAttributes(attribute.String("evidence.id", itemID.String())))
	defer span.End()

	entries, err := s.History(ctx, itemID)
	if err != nil {
		return integrity.ChainReport{}, err
	}

	links := make([]integrity.ChainLink, len(entries))
	for i, e := range entries {
		links[i] = integrity.ChainLink{Fields: chainFields(e), Digest: e.Digest}
	}
	report := integrity.VerifyChain(links)

	if report.OK {
		s.met.ChainVerifications.WithLabelValues("ok").Inc()
	} else {
		s.met.ChainVerifications.WithLabelValues("mismatch").Inc()
		s.emit(ctx, audit.Event{
			ItemID: itemID.String(),
			Action: string(audit.EventChainMismatch),
			Reason: "stored digest does not match recomputation",
		})
		s.logger.ErrorContext(ctx, "custody chain verification failed",
			"item_id", itemID.String(),
			"bad_seq", report.BadSeq,
		)
	}
	return report, nil
}

// VerifyChains verifies several items' chains with bounded parallelism.
// Different items are fully independent, so fan-out is safe.
func (s *Service) VerifyChains(ctx context.Context, itemIDs []domain.EvidenceID) (map[domain.EvidenceID]integrity.ChainReport, error) {
	reports := make(map[domain.EvidenceID]integrity.ChainReport, len(itemIDs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(verifyParallelism)
	for _, itemID := range itemIDs {
		g.Go(func() error {
			report, err := s.VerifyChain(ctx, itemID)
			if err != nil {
				return err
			}
			mu.Lock()
			reports[itemID] = report
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Service) acquire(ctx context.Context, itemID domain.EvidenceID) (func(), error) {
	start := s.now()
	release, err := s.locker.Acquire(ctx, itemID.String())
	s.met.ObserveLockWait(time.Since(start))
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			s.met.LockTimeouts.Inc()
			return nil, dErrors.New(dErrors.CodeBusy, "evidence item is busy - try again")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "custody operation cancelled while waiting for item lock")
	}
	return release, nil
}

func (s *Service) loadItem(ctx context.Context, itemID domain.EvidenceID) (*evidence.Item, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence item")
	}
	return item, nil
}

func (s *Service) lastFinal(ctx context.Context, itemID domain.EvidenceID) (*Entry, error) {
	last, err := s.store.LastFinal(ctx, itemID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody state")
	}
	return last, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditp == nil {
		return
	}
	if err := s.auditp.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

// nextChainPosition returns the sequence number and previous digest for the
// next FINAL entry after last (nil means the chain is empty).
func nextChainPosition(last *Entry) (int64, string) {
	if last == nil {
		return 1, integrity.GenesisDigest
	}
	return last.Seq + 1, last.Digest
}

// chainFields projects an entry onto the canonical fields that participate in
// chain hashing.
func chainFields(e *Entry) integrity.EntryFields {
	return integrity.EntryFields{
		ItemID:     e.ItemID,
		Seq:        e.Seq,
		Action:     e.Action,
		From:       e.FromCustodian,
		To:         e.ToCustodian,
		Location:   e.Location,
		Purpose:    e.Purpose,
		RecordedBy: e.RecordedBy,
		Timestamp:  e.CreatedAt,
	}
}
