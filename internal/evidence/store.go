package evidence

import (
	"context"

	"custodia/pkg/domain"
)

// Store persists evidence items. Implementations return sentinel errors for
// infrastructure facts; the service translates them into domain errors.
type Store interface {
	// Insert persists a new item. The evidence number must be unique; a
	// duplicate is sentinel.ErrConflict.
	Insert(ctx context.Context, item *Item) error

	// Get fetches one item by id, or sentinel.ErrNotFound.
	Get(ctx context.Context, id domain.EvidenceID) (*Item, error)

	// SetContentDigest sets the item's content digest if and only if it is
	// currently unset. Returns sentinel.ErrInvalidState when already set.
	SetContentDigest(ctx context.Context, id domain.EvidenceID, digest string) error

	// UpdateMetadata updates the non-integrity fields (storage location,
	// notes). Identity and digest fields are untouchable through this path.
	UpdateMetadata(ctx context.Context, id domain.EvidenceID, storageLoc, notes string) error

	// MarkDisposed flips the monotonic disposed flag. Idempotent.
	MarkDisposed(ctx context.Context, id domain.EvidenceID) error

	// NextEvidenceNumber allocates the next number in the EVD-<year>-<n>
	// series.
	NextEvidenceNumber(ctx context.Context, year int) (string, error)
}

// Reader is the read-only slice of the registry the ledger needs to validate
// item existence before any custody operation.
type Reader interface {
	Get(ctx context.Context, id domain.EvidenceID) (*Item, error)
}
