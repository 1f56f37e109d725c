//go:build integration

package containers

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers Postgres instance with the custody
// schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies migrations.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("custodia_test"),
		tcpostgres.WithUsername("custodia"),
		tcpostgres.WithPassword("custodia"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{Container: container, URL: url, DB: db}
}

// Truncate clears all custody tables; use between tests for isolation.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		TRUNCATE approval_records, custody_entries, evidence_items,
		         evidence_number_counters CASCADE
	`)
	return err
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	dir := migrationsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		ddl, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
			return err
		}
	}
	return nil
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}
