//go:build integration

package evidence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgresStore(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
}

func (s *PostgresStoreSuite) newItem(number string) *Item {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &Item{
		ID:             domain.NewEvidenceID(),
		CaseID:         domain.CaseID(uuid.New()),
		EvidenceNumber: number,
		Label:          "seized laptop",
		Category:       domain.CategoryDigital,
		StorageLoc:     "locker 14",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *PostgresStoreSuite) TestInsertAndGet() {
	item := s.newItem("EVD-2026-000001")
	s.Require().NoError(s.store.Insert(s.ctx, item))

	got, err := s.store.Get(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(item.ID, got.ID)
	s.Equal(item.CaseID, got.CaseID)
	s.Equal("EVD-2026-000001", got.EvidenceNumber)
	s.Equal(domain.CategoryDigital, got.Category)
	s.False(got.Disposed)
	s.Empty(got.ContentDigest)
	s.True(got.SeizureID.IsNil())
}

func (s *PostgresStoreSuite) TestInsertDuplicateNumberConflicts() {
	s.Require().NoError(s.store.Insert(s.ctx, s.newItem("EVD-2026-000001")))

	err := s.store.Insert(s.ctx, s.newItem("EVD-2026-000001"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, domain.NewEvidenceID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSetContentDigestOnce() {
	item := s.newItem("EVD-2026-000001")
	s.Require().NoError(s.store.Insert(s.ctx, item))

	digest := strings.Repeat("ab", 32)
	s.Require().NoError(s.store.SetContentDigest(s.ctx, item.ID, digest))

	got, err := s.store.Get(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(digest, got.ContentDigest)

	err = s.store.SetContentDigest(s.ctx, item.ID, strings.Repeat("cd", 32))
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err = s.store.Get(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(digest, got.ContentDigest, "first digest must survive")
}

func (s *PostgresStoreSuite) TestSetContentDigestMissingItem() {
	err := s.store.SetContentDigest(s.ctx, domain.NewEvidenceID(), strings.Repeat("ab", 32))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateMetadata() {
	item := s.newItem("EVD-2026-000001")
	s.Require().NoError(s.store.Insert(s.ctx, item))

	s.Require().NoError(s.store.UpdateMetadata(s.ctx, item.ID, "locker 2", "moved after audit"))

	got, err := s.store.Get(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal("locker 2", got.StorageLoc)
	s.Equal("moved after audit", got.Notes)
	s.Equal(item.EvidenceNumber, got.EvidenceNumber)
}

func (s *PostgresStoreSuite) TestMarkDisposedIdempotent() {
	item := s.newItem("EVD-2026-000001")
	s.Require().NoError(s.store.Insert(s.ctx, item))

	s.Require().NoError(s.store.MarkDisposed(s.ctx, item.ID))
	s.Require().NoError(s.store.MarkDisposed(s.ctx, item.ID))

	got, err := s.store.Get(s.ctx, item.ID)
	s.Require().NoError(err)
	s.True(got.Disposed)
}

func (s *PostgresStoreSuite) TestNextEvidenceNumber() {
	first, err := s.store.NextEvidenceNumber(s.ctx, 2026)
	s.Require().NoError(err)
	s.Equal("EVD-2026-000001", first)

	second, err := s.store.NextEvidenceNumber(s.ctx, 2026)
	s.Require().NoError(err)
	s.Equal("EVD-2026-000002", second)

	otherYear, err := s.store.NextEvidenceNumber(s.ctx, 2027)
	s.Require().NoError(err)
	s.Equal("EVD-2027-000001", otherYear, "counters are per year")
}
