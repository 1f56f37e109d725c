package ledger

import (
	"context"
	"time"

	"custodia/pkg/domain"
)

// Store persists custody entries and their approval records. Both live behind
// one interface because a gated append must write the entry and its PENDING
// gate atomically - there is no partial-append state.
//
// Implementations return pkg/platform/sentinel errors for infrastructure
// facts; the services translate them into domain errors.
type Store interface {
	// InsertEntry persists a new entry, and its approval gate when gate is
	// non-nil, as a single atomic operation.
	InsertEntry(ctx context.Context, e *Entry, gate *ApprovalRecord) error

	// GetEntry fetches one entry by id.
	GetEntry(ctx context.Context, entryID domain.EntryID) (*Entry, error)

	// ListFinalByItem returns the item's FINAL entries ordered by sequence.
	ListFinalByItem(ctx context.Context, itemID domain.EvidenceID) ([]*Entry, error)

	// LastFinal returns the item's highest-sequence FINAL entry, or
	// sentinel.ErrNotFound when the item has no custody history yet.
	LastFinal(ctx context.Context, itemID domain.EvidenceID) (*Entry, error)

	// FinalizeEntry flips a PROVISIONAL entry to FINAL, assigning its
	// sequence number and chain digests. The (item, seq) pair is unique
	// across FINAL entries; a duplicate is sentinel.ErrConflict.
	FinalizeEntry(ctx context.Context, entryID domain.EntryID, seq int64, prevDigest, digest string, at time.Time) error

	// GetGate fetches the approval record for a gated entry.
	GetGate(ctx context.Context, entryID domain.EntryID) (*ApprovalRecord, error)

	// ListPendingByItem returns the item's PENDING approval records in
	// creation order (oldest first), the order approvals must happen in.
	ListPendingByItem(ctx context.Context, itemID domain.EvidenceID) ([]*ApprovalRecord, error)

	// ResolveGate decides a PENDING gate exactly once. A second resolution
	// attempt is sentinel.ErrAlreadyResolved.
	ResolveGate(ctx context.Context, entryID domain.EntryID, status GateStatus, approver domain.UserID, reason string, at time.Time) error
}

// TxRunner provides an atomicity boundary for multi-write ledger operations
// (resolve gate + finalize entry). Postgres wraps a SQL transaction; the
// in-memory store needs none because mutations already run under the
// per-item lock.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxRunner satisfies TxRunner for stores whose writes are atomic already.
type NopTxRunner struct{}

func (NopTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
