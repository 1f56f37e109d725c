package evidence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	auditpub "custodia/pkg/platform/audit/publisher"

	"custodia/internal/integrity"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	audit "custodia/pkg/platform/audit"
	"custodia/pkg/platform/sentinel"
)

// CreateInput carries the fields required to register an evidence item.
type CreateInput struct {
	CaseID        domain.CaseID
	SeizureID     domain.SeizureID
	Label         string
	Category      domain.EvidenceCategory
	StorageLoc    string
	RetentionPlan string
	Notes         string
}

// Service owns evidence item metadata. It never touches custody entries.
type Service struct {
	store  Store
	auditp *auditpub.Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, auditp *auditpub.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, auditp: auditp, logger: logger, now: time.Now}
}

// Create registers a new item and assigns its id and evidence number.
func (s *Service) Create(ctx context.Context, in CreateInput, actor domain.UserID) (*Item, error) {
	if in.CaseID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "case id is required")
	}
	if in.Label == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "label is required")
	}
	if !in.Category.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "category is required")
	}

	now := s.now()
	number, err := s.store.NextEvidenceNumber(ctx, now.Year())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate evidence number")
	}

	item := &Item{
		ID:             domain.NewEvidenceID(),
		CaseID:         in.CaseID,
		SeizureID:      in.SeizureID,
		EvidenceNumber: number,
		Label:          in.Label,
		Category:       in.Category,
		StorageLoc:     in.StorageLoc,
		RetentionPlan:  in.RetentionPlan,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Insert(ctx, item); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register evidence item")
	}

	s.emit(ctx, audit.EventItemRegistered, item.ID, actor, "")
	return item, nil
}

// Get fetches one item.
func (s *Service) Get(ctx context.Context, id domain.EvidenceID) (*Item, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence item not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence item")
	}
	return item, nil
}

// SetContentDigest fixes the item's content digest. Allowed exactly once:
// re-imaging produces a new item, never a digest mutation.
func (s *Service) SetContentDigest(ctx context.Context, id domain.EvidenceID, digest string, actor domain.UserID) error {
	if len(digest) != 64 {
		return dErrors.New(dErrors.CodeValidation, "digest must be a hex sha-256")
	}
	err := s.store.SetContentDigest(ctx, id, digest)
	switch {
	case err == nil:
		s.emit(ctx, audit.EventContentDigestSet, id, actor, "")
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "evidence item not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeImmutableField, "content digest is already set - re-image to a new item")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set content digest")
	}
}

// UpdateMetadata changes non-integrity metadata only.
func (s *Service) UpdateMetadata(ctx context.Context, id domain.EvidenceID, storageLoc, notes string) error {
	err := s.store.UpdateMetadata(ctx, id, storageLoc, notes)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "evidence item not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update evidence metadata")
	}
	return nil
}

// MarkDisposed mirrors the ledger's terminal state into the registry. Called
// by the approval gate when a terminal entry finalizes; monotonic.
func (s *Service) MarkDisposed(ctx context.Context, id domain.EvidenceID) error {
	if err := s.store.MarkDisposed(ctx, id); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark item disposed")
	}
	return nil
}

// VerifyContent recomputes the digest of data and compares it to the item's
// stored content digest.
func (s *Service) VerifyContent(ctx context.Context, id domain.EvidenceID, data []byte) (bool, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if !item.HasContentDigest() {
		return false, dErrors.New(dErrors.CodeValidation, "evidence item has no content digest")
	}
	return integrity.VerifyFileDigest(item.ContentDigest, data), nil
}

func (s *Service) emit(ctx context.Context, action audit.LedgerEvent, itemID domain.EvidenceID, actor domain.UserID, reason string) {
	if s.auditp == nil {
		return
	}
	if err := s.auditp.Emit(ctx, audit.Event{
		ItemID: itemID.String(),
		Actor:  actor.String(),
		Action: string(action),
		Reason: reason,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
}
