// Package handler exposes the evidence registry over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"custodia/internal/evidence"
	"custodia/internal/platform/middleware"
	"custodia/internal/transport/http/shared"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Service defines the registry operations the handler needs.
type Service interface {
	Create(ctx context.Context, in evidence.CreateInput, actor domain.UserID) (*evidence.Item, error)
	Get(ctx context.Context, id domain.EvidenceID) (*evidence.Item, error)
	SetContentDigest(ctx context.Context, id domain.EvidenceID, digest string, actor domain.UserID) error
	UpdateMetadata(ctx context.Context, id domain.EvidenceID, storageLoc, notes string) error
}

// Handler wires evidence registry endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an evidence handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts evidence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/evidence", h.HandleRegister)
	r.Get("/evidence/{evidenceID}", h.HandleGet)
	r.Post("/evidence/{evidenceID}/digest", h.HandleSetDigest)
	r.Patch("/evidence/{evidenceID}", h.HandleUpdateMetadata)
}

// HandleRegister handles POST /evidence requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	req, ok := shared.DecodeAndPrepare[RegisterRequest](w, r, h.logger)
	if !ok {
		return
	}

	item, err := h.service.Create(ctx, req.ToInput(), actor)
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence registration failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence item registered",
		"request_id", middleware.GetRequestID(ctx),
		"item_id", item.ID.String(),
		"evidence_number", item.EvidenceNumber,
	)
	shared.WriteJSON(w, http.StatusCreated, FromItem(item))
}

// HandleGet handles GET /evidence/{evidenceID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := domain.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	item, err := h.service.Get(ctx, itemID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromItem(item))
}

// HandleSetDigest handles POST /evidence/{evidenceID}/digest requests.
func (h *Handler) HandleSetDigest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	itemID, err := domain.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	req, ok := shared.DecodeAndPrepare[SetDigestRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.SetContentDigest(ctx, itemID, req.ContentDigest, actor); err != nil {
		h.logger.WarnContext(ctx, "set content digest failed",
			"request_id", middleware.GetRequestID(ctx),
			"item_id", itemID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateMetadata handles PATCH /evidence/{evidenceID} requests.
func (h *Handler) HandleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := h.actor(w, ctx); !ok {
		return
	}

	itemID, err := domain.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	req, ok := shared.DecodeAndPrepare[UpdateMetadataRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.UpdateMetadata(ctx, itemID, req.StorageLoc, req.Notes); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// actor resolves the authenticated user, writing the error itself when the
// request is unauthenticated.
func (h *Handler) actor(w http.ResponseWriter, ctx context.Context) (domain.UserID, bool) {
	userID, err := domain.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.UserID{}, false
	}
	return userID, true
}
