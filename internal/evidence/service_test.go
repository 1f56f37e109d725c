package evidence

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"custodia/internal/integrity"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

type EvidenceServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemoryStore
	service *Service
	actor   domain.UserID
}

func TestEvidenceServiceSuite(t *testing.T) {
	suite.Run(t, new(EvidenceServiceSuite))
}

func (s *EvidenceServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.store, nil, logger)
	s.actor = domain.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111"))
}

func (s *EvidenceServiceSuite) validInput() CreateInput {
	return CreateInput{
		CaseID:     domain.CaseID(uuid.MustParse("33333333-3333-3333-3333-333333333333")),
		Label:      "seized laptop",
		Category:   domain.CategoryDigital,
		StorageLoc: "locker 14",
	}
}

func (s *EvidenceServiceSuite) TestCreate() {
	s.Run("requires case id", func() {
		in := s.validInput()
		in.CaseID = domain.CaseID{}
		_, err := s.service.Create(s.ctx, in, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requires label", func() {
		in := s.validInput()
		in.Label = ""
		_, err := s.service.Create(s.ctx, in, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requires valid category", func() {
		in := s.validInput()
		in.Category = domain.EvidenceCategory("GASEOUS")
		_, err := s.service.Create(s.ctx, in, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("assigns id and evidence number", func() {
		item, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)
		s.False(item.ID.IsNil())
		s.True(strings.HasPrefix(item.EvidenceNumber, "EVD-"))
		s.False(item.Disposed)
		s.False(item.HasContentDigest())
	})

	s.Run("numbers are unique per item", func() {
		a, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)
		b, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)
		s.NotEqual(a.EvidenceNumber, b.EvidenceNumber)
	})
}

func (s *EvidenceServiceSuite) TestGet() {
	s.Run("missing item is not found", func() {
		_, err := s.service.Get(s.ctx, domain.NewEvidenceID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("round trip", func() {
		created, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)
		got, err := s.service.Get(s.ctx, created.ID)
		s.Require().NoError(err)
		s.Equal(created.ID, got.ID)
		s.Equal(created.EvidenceNumber, got.EvidenceNumber)
	})
}

func (s *EvidenceServiceSuite) TestSetContentDigest() {
	digest := integrity.DigestFile([]byte("disk image"))

	s.Run("rejects malformed digest", func() {
		item, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)
		err = s.service.SetContentDigest(s.ctx, item.ID, "deadbeef", s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("sets once", func() {
		item, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)
		s.Require().NoError(s.service.SetContentDigest(s.ctx, item.ID, digest, s.actor))

		got, err := s.service.Get(s.ctx, item.ID)
		s.Require().NoError(err)
		s.Equal(digest, got.ContentDigest)
	})

	s.Run("second write is immutable-field", func() {
		item, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)
		s.Require().NoError(s.service.SetContentDigest(s.ctx, item.ID, digest, s.actor))

		other := integrity.DigestFile([]byte("re-imaged"))
		err = s.service.SetContentDigest(s.ctx, item.ID, other, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeImmutableField))

		// First digest must survive the attempt.
		got, err := s.service.Get(s.ctx, item.ID)
		s.Require().NoError(err)
		s.Equal(digest, got.ContentDigest)
	})
}

func (s *EvidenceServiceSuite) TestVerifyContent() {
	data := []byte("disk image")

	s.Run("no digest on record", func() {
		item, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)
		_, err = s.service.VerifyContent(s.ctx, item.ID, data)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("matching and tampered content", func() {
		item, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)
		s.Require().NoError(s.service.SetContentDigest(s.ctx, item.ID, integrity.DigestFile(data), s.actor))

		ok, err := s.service.VerifyContent(s.ctx, item.ID, data)
		s.Require().NoError(err)
		s.True(ok)

		ok, err = s.service.VerifyContent(s.ctx, item.ID, []byte("tampered"))
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *EvidenceServiceSuite) TestMarkDisposed() {
	item, err := s.service.Create(s.ctx, s.validInput(), s.actor)
	s.Require().NoError(err)

	s.Require().NoError(s.service.MarkDisposed(s.ctx, item.ID))
	s.Require().NoError(s.service.MarkDisposed(s.ctx, item.ID), "idempotent")

	got, err := s.service.Get(s.ctx, item.ID)
	s.Require().NoError(err)
	s.True(got.Disposed)
}

func (s *EvidenceServiceSuite) TestUpdateMetadata() {
	s.Run("missing item is not found", func() {
		err := s.service.UpdateMetadata(s.ctx, domain.NewEvidenceID(), "locker 2", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("updates non-integrity fields only", func() {
		item, err := s.service.Create(s.ctx, s.validInput(), s.actor)
		s.Require().NoError(err)

		s.Require().NoError(s.service.UpdateMetadata(s.ctx, item.ID, "locker 2", "moved after audit"))

		got, err := s.service.Get(s.ctx, item.ID)
		s.Require().NoError(err)
		s.Equal("locker 2", got.StorageLoc)
		s.Equal("moved after audit", got.Notes)
		s.Equal(item.EvidenceNumber, got.EvidenceNumber)
	})
}
