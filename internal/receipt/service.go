package receipt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/evidence"
	"custodia/internal/ledger"
	"custodia/internal/platform/metrics"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	audit "custodia/pkg/platform/audit"
	auditpub "custodia/pkg/platform/audit/publisher"
	"custodia/pkg/platform/sentinel"
)

// EntrySource is the slice of the ledger store the generator reads.
type EntrySource interface {
	GetEntry(ctx context.Context, entryID domain.EntryID) (*ledger.Entry, error)
	ListFinalByItem(ctx context.Context, itemID domain.EvidenceID) ([]*ledger.Entry, error)
}

// Service generates signed custody receipts from finalized entries.
type Service struct {
	entries EntrySource
	items   evidence.Reader
	signer  *Signer
	auditp  *auditpub.Publisher
	met     *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(entries EntrySource, items evidence.Reader, signer *Signer, auditp *auditpub.Publisher, met *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		entries: entries,
		items:   items,
		signer:  signer,
		auditp:  auditp,
		met:     met,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate renders the receipt for one FINAL entry. Requesting a receipt for
// a provisional or rejected entry is NotFinal: there is no custody fact to
// certify yet.
func (s *Service) Generate(ctx context.Context, entryID domain.EntryID, requestedBy domain.UserID) (*Receipt, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "custody entry not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody entry")
	}
	if !entry.IsFinal() {
		return nil, dErrors.New(dErrors.CodeNotFinal, "receipt requires a finalized custody entry")
	}

	item, err := s.items.Get(ctx, entry.ItemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence item")
	}

	history, err := s.entries.ListFinalByItem(ctx, entry.ItemID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load custody history")
	}
	chain := make([]string, 0, entry.Seq)
	for _, e := range history {
		if e.Seq <= entry.Seq {
			chain = append(chain, e.Digest)
		}
	}

	r := &Receipt{
		EntryID:        entry.ID.String(),
		EvidenceID:     entry.ItemID.String(),
		EvidenceNumber: item.EvidenceNumber,
		Seq:            entry.Seq,
		Action:         entry.Action.String(),
		FromCustodian:  entry.FromCustodian,
		ToCustodian:    entry.ToCustodian,
		Location:       entry.Location,
		Purpose:        entry.Purpose,
		RecordedBy:     entry.RecordedBy.String(),
		RecordedAt:     entry.CreatedAt,
		FinalizedAt:    *entry.FinalizedAt,
		EntryDigest:    entry.Digest,
		ChainDigests:   chain,
		IssuedAt:       s.now(),
	}
	s.signer.Sign(r)

	s.met.ReceiptsIssued.Inc()
	if s.auditp != nil {
		if err := s.auditp.Emit(ctx, audit.Event{
			ItemID:  entry.ItemID.String(),
			EntryID: entry.ID.String(),
			Actor:   requestedBy.String(),
			Action:  string(audit.EventReceiptIssued),
		}); err != nil {
			s.logger.WarnContext(ctx, "failed to emit audit event", "error", err)
		}
	}
	return r, nil
}
