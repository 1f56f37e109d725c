package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists custody entries and approval records in PostgreSQL.
//
// A partial unique index on (item_id, seq) over FINAL entries is the hard
// backstop for sequence contiguity: even if two finalizations race past the
// per-item lock, only one can commit.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed ledger store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) conn(ctx context.Context) execer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) InsertEntry(ctx context.Context, e *Entry, gate *ApprovalRecord) error {
	if gate == nil {
		return s.insertEntry(ctx, s.conn(ctx), e)
	}
	if t, ok := tx.From(ctx); ok {
		if err := s.insertEntry(ctx, t, e); err != nil {
			return err
		}
		return s.insertGate(ctx, t, gate)
	}

	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin gated insert: %w", err)
	}
	defer func() {
		_ = t.Rollback()
	}()
	if err := s.insertEntry(ctx, t, e); err != nil {
		return err
	}
	if err := s.insertGate(ctx, t, gate); err != nil {
		return err
	}
	return t.Commit()
}

func (s *PostgresStore) insertEntry(ctx context.Context, conn execer, e *Entry) error {
	query := `
		INSERT INTO custody_entries (
			id, item_id, seq, action, from_custodian, to_custodian,
			location, purpose, signature_ref, recorded_by, recorded_via,
			corrects_entry, status, prev_digest, digest, created_at, finalized_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := conn.ExecContext(ctx, query,
		uuid.UUID(e.ID), uuid.UUID(e.ItemID), nullSeq(e.Seq), e.Action.String(),
		e.FromCustodian, e.ToCustodian, e.Location, e.Purpose, e.SignatureRef,
		uuid.UUID(e.RecordedBy), e.RecordedVia, nullUUID(uuid.UUID(e.CorrectsEntry)),
		string(e.Status), e.PrevDigest, e.Digest, e.CreatedAt, e.FinalizedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert custody entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) insertGate(ctx context.Context, conn execer, gate *ApprovalRecord) error {
	query := `
		INSERT INTO approval_records (
			entry_id, item_id, status, requested_by, requested_at
		) VALUES ($1, $2, $3, $4, $5)
	`
	_, err := conn.ExecContext(ctx, query,
		uuid.UUID(gate.EntryID), uuid.UUID(gate.ItemID), string(gate.Status),
		uuid.UUID(gate.RequestedBy), gate.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("insert approval record: %w", err)
	}
	return nil
}

const entryColumns = `
	id, item_id, seq, action, from_custodian, to_custodian,
	location, purpose, signature_ref, recorded_by, recorded_via,
	corrects_entry, status, prev_digest, digest, created_at, finalized_at
`

func (s *PostgresStore) GetEntry(ctx context.Context, entryID domain.EntryID) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM custody_entries WHERE id = $1`
	row := s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(entryID))
	return scanEntry(row)
}

func (s *PostgresStore) ListFinalByItem(ctx context.Context, itemID domain.EvidenceID) ([]*Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM custody_entries
		WHERE item_id = $1 AND status = 'FINAL'
		ORDER BY seq
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, uuid.UUID(itemID))
	if err != nil {
		return nil, fmt.Errorf("list custody entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list custody entries: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) LastFinal(ctx context.Context, itemID domain.EvidenceID) (*Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM custody_entries
		WHERE item_id = $1 AND status = 'FINAL'
		ORDER BY seq DESC
		LIMIT 1
	`
	row := s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(itemID))
	return scanEntry(row)
}

func (s *PostgresStore) FinalizeEntry(ctx context.Context, entryID domain.EntryID, seq int64, prevDigest, digest string, at time.Time) error {
	query := `
		UPDATE custody_entries
		SET seq = $2, prev_digest = $3, digest = $4, status = 'FINAL', finalized_at = $5
		WHERE id = $1 AND status = 'PROVISIONAL'
	`
	res, err := s.conn(ctx).ExecContext(ctx, query, uuid.UUID(entryID), seq, prevDigest, digest, at)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("finalize custody entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize custody entry: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetEntry(ctx, entryID); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) GetGate(ctx context.Context, entryID domain.EntryID) (*ApprovalRecord, error) {
	query := `
		SELECT entry_id, item_id, status, requested_by, requested_at,
		       approver, decided_at, reason
		FROM approval_records
		WHERE entry_id = $1
	`
	row := s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(entryID))
	return scanGate(row)
}

func (s *PostgresStore) ListPendingByItem(ctx context.Context, itemID domain.EvidenceID) ([]*ApprovalRecord, error) {
	query := `
		SELECT entry_id, item_id, status, requested_by, requested_at,
		       approver, decided_at, reason
		FROM approval_records
		WHERE item_id = $1 AND status = 'PENDING'
		ORDER BY queue_pos
	`
	rows, err := s.conn(ctx).QueryContext(ctx, query, uuid.UUID(itemID))
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var gates []*ApprovalRecord
	for rows.Next() {
		g, err := scanGate(rows)
		if err != nil {
			return nil, err
		}
		gates = append(gates, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	return gates, nil
}

func (s *PostgresStore) ResolveGate(ctx context.Context, entryID domain.EntryID, status GateStatus, approver domain.UserID, reason string, at time.Time) error {
	query := `
		UPDATE approval_records
		SET status = $2, approver = $3, decided_at = $4, reason = $5
		WHERE entry_id = $1 AND status = 'PENDING'
	`
	res, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(entryID), string(status), nullUUID(uuid.UUID(approver)), at, reason)
	if err != nil {
		return fmt.Errorf("resolve approval record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve approval record: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetGate(ctx, entryID); err != nil {
			return err
		}
		return sentinel.ErrAlreadyResolved
	}
	return nil
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e          Entry
		id         uuid.UUID
		itemID     uuid.UUID
		seq        sql.NullInt64
		action     string
		recordedBy uuid.UUID
		corrects   uuid.NullUUID
		status     string
	)
	err := row.Scan(
		&id, &itemID, &seq, &action, &e.FromCustodian, &e.ToCustodian,
		&e.Location, &e.Purpose, &e.SignatureRef, &recordedBy, &e.RecordedVia,
		&corrects, &status, &e.PrevDigest, &e.Digest, &e.CreatedAt, &e.FinalizedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan custody entry: %w", err)
	}
	e.ID = domain.EntryID(id)
	e.ItemID = domain.EvidenceID(itemID)
	if seq.Valid {
		e.Seq = seq.Int64
	}
	e.Action = domain.CustodyAction(action)
	e.RecordedBy = domain.UserID(recordedBy)
	if corrects.Valid {
		e.CorrectsEntry = domain.EntryID(corrects.UUID)
	}
	e.Status = EntryStatus(status)
	return &e, nil
}

func scanGate(row rowScanner) (*ApprovalRecord, error) {
	var (
		g           ApprovalRecord
		entryID     uuid.UUID
		itemID      uuid.UUID
		status      string
		requestedBy uuid.UUID
		approver    uuid.NullUUID
	)
	err := row.Scan(
		&entryID, &itemID, &status, &requestedBy, &g.RequestedAt,
		&approver, &g.DecidedAt, &g.Reason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan approval record: %w", err)
	}
	g.EntryID = domain.EntryID(entryID)
	g.ItemID = domain.EvidenceID(itemID)
	g.Status = GateStatus(status)
	g.RequestedBy = domain.UserID(requestedBy)
	if approver.Valid {
		g.Approver = domain.UserID(approver.UUID)
	}
	return &g, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullSeq(seq int64) sql.NullInt64 {
	if seq == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: seq, Valid: true}
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	if u == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: u, Valid: true}
}
