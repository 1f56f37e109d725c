package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/platform/tx"
)

// uniqueViolation is the postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// PostgresStore persists evidence items in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed evidence store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// execer lets queries run inside a caller-provided transaction when one is in
// the context.
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

func (s *PostgresStore) Insert(ctx context.Context, item *Item) error {
	query := `
		INSERT INTO evidence_items (
			id, case_id, seizure_id, evidence_number, label, category,
			storage_location, retention_plan, notes, content_digest,
			disposed, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := s.conn(ctx).ExecContext(ctx, query,
		uuid.UUID(item.ID), uuid.UUID(item.CaseID), nullUUID(uuid.UUID(item.SeizureID)),
		item.EvidenceNumber, item.Label, item.Category.String(),
		item.StorageLoc, item.RetentionPlan, item.Notes, item.ContentDigest,
		item.Disposed, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert evidence item: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.EvidenceID) (*Item, error) {
	query := `
		SELECT id, case_id, seizure_id, evidence_number, label, category,
		       storage_location, retention_plan, notes, content_digest,
		       disposed, created_at, updated_at
		FROM evidence_items
		WHERE id = $1
	`
	row := s.conn(ctx).QueryRowContext(ctx, query, uuid.UUID(id))
	return scanItem(row)
}

func (s *PostgresStore) SetContentDigest(ctx context.Context, id domain.EvidenceID, digest string) error {
	// The digest column guards itself: the update only lands when unset.
	query := `
		UPDATE evidence_items
		SET content_digest = $2, updated_at = now()
		WHERE id = $1 AND content_digest = ''
	`
	res, err := s.conn(ctx).ExecContext(ctx, query, uuid.UUID(id), digest)
	if err != nil {
		return fmt.Errorf("set content digest: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set content digest: %w", err)
	}
	if affected == 0 {
		// Distinguish missing item from already-set digest.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) UpdateMetadata(ctx context.Context, id domain.EvidenceID, storageLoc, notes string) error {
	query := `
		UPDATE evidence_items
		SET storage_location = $2, notes = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query, uuid.UUID(id), storageLoc, notes)
	if err != nil {
		return fmt.Errorf("update evidence metadata: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update evidence metadata: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) MarkDisposed(ctx context.Context, id domain.EvidenceID) error {
	query := `
		UPDATE evidence_items
		SET disposed = TRUE, updated_at = now()
		WHERE id = $1
	`
	res, err := s.conn(ctx).ExecContext(ctx, query, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("mark evidence disposed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark evidence disposed: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) NextEvidenceNumber(ctx context.Context, year int) (string, error) {
	// One counter row per year, incremented atomically.
	query := `
		INSERT INTO evidence_number_counters (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = evidence_number_counters.last_value + 1
		RETURNING last_value
	`
	var n int64
	if err := s.conn(ctx).QueryRowContext(ctx, query, year).Scan(&n); err != nil {
		return "", fmt.Errorf("allocate evidence number: %w", err)
	}
	return fmt.Sprintf("EVD-%d-%06d", year, n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item      Item
		id        uuid.UUID
		caseID    uuid.UUID
		seizureID uuid.NullUUID
		category  string
	)
	err := row.Scan(
		&id, &caseID, &seizureID, &item.EvidenceNumber, &item.Label, &category,
		&item.StorageLoc, &item.RetentionPlan, &item.Notes, &item.ContentDigest,
		&item.Disposed, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan evidence item: %w", err)
	}
	item.ID = domain.EvidenceID(id)
	item.CaseID = domain.CaseID(caseID)
	if seizureID.Valid {
		item.SeizureID = domain.SeizureID(seizureID.UUID)
	}
	item.Category = domain.EvidenceCategory(category)
	return &item, nil
}

func nullUUID(u uuid.UUID) uuid.NullUUID {
	if u == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: u, Valid: true}
}
