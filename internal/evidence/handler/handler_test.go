package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"custodia/internal/evidence"
	"custodia/internal/evidence/handler/mocks"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/evidence-mocks.go -package=mocks

const (
	testItemID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	testCaseID = "33333333-3333-3333-3333-333333333333"
	testUserID = "11111111-1111-1111-1111-111111111111"
)

type EvidenceHandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *mocks.MockService
}

func TestEvidenceHandlerSuite(t *testing.T) {
	suite.Run(t, new(EvidenceHandlerSuite))
}

func (s *EvidenceHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.T().Cleanup(ctrl.Finish)

	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	New(s.service, logger).Register(s.router)
}

func (s *EvidenceHandlerSuite) sampleItem() *evidence.Item {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	itemID, _ := domain.ParseEvidenceID(testItemID)
	caseID, _ := domain.ParseCaseID(testCaseID)
	return &evidence.Item{
		ID:             itemID,
		CaseID:         caseID,
		EvidenceNumber: "EVD-2026-000001",
		Label:          "seized laptop",
		Category:       domain.CategoryDigital,
		StorageLoc:     "locker 14",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *EvidenceHandlerSuite) TestHandleRegister() {
	body := map[string]string{
		"case_id":          testCaseID,
		"label":            "seized laptop",
		"category":         "DIGITAL",
		"storage_location": "locker 14",
	}

	s.Run("requires authentication", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/evidence", body)
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("rejects missing label", func() {
		bad := map[string]string{"case_id": testCaseID, "category": "DIGITAL"}
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/evidence", bad)
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUserID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("rejects unknown field", func() {
		bad := map[string]string{"case_id": testCaseID, "label": "x", "category": "DIGITAL", "colour": "red"}
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/evidence", bad)
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUserID))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("registers and responds created", func() {
		actor, _ := domain.ParseUserID(testUserID)
		item := s.sampleItem()
		s.service.EXPECT().Create(gomock.Any(), gomock.Any(), actor).Return(item, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/evidence", body)
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUserID))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[ItemResponse](s.T(), rr)
		s.Equal(testItemID, resp.ID)
		s.Equal("EVD-2026-000001", resp.EvidenceNumber)
		s.Empty(resp.SeizureID)
	})
}

func (s *EvidenceHandlerSuite) TestHandleGet() {
	s.Run("invalid id", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/evidence/not-a-uuid"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("missing item is not found", func() {
		s.service.EXPECT().Get(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "evidence item not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/evidence/"+testItemID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("returns the item", func() {
		s.service.EXPECT().Get(gomock.Any(), gomock.Any()).Return(s.sampleItem(), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/evidence/"+testItemID))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[ItemResponse](s.T(), rr)
		s.Equal("DIGITAL", resp.Category)
		s.False(resp.Disposed)
	})
}

func (s *EvidenceHandlerSuite) TestHandleSetDigest() {
	path := "/evidence/" + testItemID + "/digest"
	digest := strings.Repeat("ab", 32)

	s.Run("rejects a malformed digest", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]string{"content_digest": "deadbeef"})
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUserID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("normalizes case before handing off", func() {
		s.service.EXPECT().SetContentDigest(gomock.Any(), gomock.Any(), digest, gomock.Any()).Return(nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path,
			map[string]string{"content_digest": strings.ToUpper(digest)})
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUserID))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})

	s.Run("second write conflicts", func() {
		s.service.EXPECT().SetContentDigest(gomock.Any(), gomock.Any(), digest, gomock.Any()).
			Return(dErrors.New(dErrors.CodeImmutableField, "content digest is already set"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]string{"content_digest": digest})
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUserID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "immutable_field")
	})
}

func (s *EvidenceHandlerSuite) TestHandleUpdateMetadata() {
	path := "/evidence/" + testItemID

	s.Run("rejects an empty update", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, path, map[string]string{})
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUserID))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("updates storage location and notes", func() {
		s.service.EXPECT().UpdateMetadata(gomock.Any(), gomock.Any(), "locker 2", "moved after audit").Return(nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPatch, path,
			map[string]string{"storage_location": "locker 2", "notes": "moved after audit"})
		rr := testutil.DoRequest(s.router, testutil.WithUserID(req, testUserID))
		testutil.AssertStatus(s.T(), rr, http.StatusNoContent)
	})
}
