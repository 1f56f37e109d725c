// Package handler exposes the custody ledger, approval gate, and receipt
// generator over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/device"
	"custodia/internal/integrity"
	"custodia/internal/ledger"
	"custodia/internal/platform/middleware"
	"custodia/internal/receipt"
	"custodia/internal/transport/http/shared"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// LedgerService defines the custody ledger operations the handler needs.
type LedgerService interface {
	Append(ctx context.Context, in ledger.AppendInput) (*ledger.Entry, error)
	History(ctx context.Context, itemID domain.EvidenceID) ([]*ledger.Entry, error)
	VerifyChain(ctx context.Context, itemID domain.EvidenceID) (integrity.ChainReport, error)
}

// GateService defines the approval workflow operations.
type GateService interface {
	Approve(ctx context.Context, entryID domain.EntryID, approver domain.UserID) (*ledger.Entry, error)
	Reject(ctx context.Context, entryID domain.EntryID, approver domain.UserID, reason string) error
	Pending(ctx context.Context, itemID domain.EvidenceID) ([]*ledger.PendingApproval, error)
}

// ReceiptService defines the receipt generator.
type ReceiptService interface {
	Generate(ctx context.Context, entryID domain.EntryID, requestedBy domain.UserID) (*receipt.Receipt, error)
}

// Handler wires custody endpoints to the ledger, gate, and receipt services.
type Handler struct {
	ledger   LedgerService
	gate     GateService
	receipts ReceiptService
	logger   *slog.Logger
}

// New constructs a custody handler with its dependencies.
func New(ledgerSvc LedgerService, gate GateService, receipts ReceiptService, logger *slog.Logger) *Handler {
	return &Handler{
		ledger:   ledgerSvc,
		gate:     gate,
		receipts: receipts,
		logger:   logger,
	}
}

// Register mounts custody endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/evidence/{evidenceID}/custody", func(r chi.Router) {
		r.Post("/", h.HandleAppend)
		r.Get("/", h.HandleHistory)
		r.Get("/pending", h.HandlePending)
		r.Get("/verify", h.HandleVerify)
		r.Post("/{entryID}/approve", h.HandleApprove)
		r.Post("/{entryID}/reject", h.HandleReject)
		r.Get("/{entryID}/receipt", h.HandleReceipt)
	})
}

// HandleAppend handles POST /evidence/{evidenceID}/custody requests.
func (h *Handler) HandleAppend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	actor, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	itemID, err := domain.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	req, ok := shared.DecodeAndPrepare[AppendRequest](w, r, h.logger)
	if !ok {
		return
	}

	entry, err := h.ledger.Append(ctx, req.ToInput(itemID, actor, device.Summarize(r.UserAgent())))
	if err != nil {
		h.logger.WarnContext(ctx, "custody append rejected",
			"request_id", middleware.GetRequestID(ctx),
			"item_id", itemID.String(),
			"action", req.Action,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "custody entry recorded",
		"request_id", middleware.GetRequestID(ctx),
		"item_id", itemID.String(),
		"entry_id", entry.ID.String(),
		"status", string(entry.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	status := http.StatusCreated
	if entry.Status == ledger.StatusProvisional {
		// Gated entries are not custody facts yet.
		status = http.StatusAccepted
	}
	shared.WriteJSON(w, status, FromEntry(entry))
}

// HandleHistory handles GET /evidence/{evidenceID}/custody requests.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := domain.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.ledger.History(ctx, itemID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

// HandlePending handles GET /evidence/{evidenceID}/custody/pending requests.
func (h *Handler) HandlePending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := domain.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	queue, err := h.gate.Pending(ctx, itemID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromPending(queue))
}

// HandleVerify handles GET /evidence/{evidenceID}/custody/verify requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := domain.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	report, err := h.ledger.VerifyChain(ctx, itemID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromReport(report))
}

// HandleApprove handles the approve endpoint.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	approver, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	entryID, err := domain.ParseEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entry, err := h.gate.Approve(ctx, entryID, approver)
	if err != nil {
		h.logger.WarnContext(ctx, "approval rejected",
			"request_id", middleware.GetRequestID(ctx),
			"entry_id", entryID.String(),
			"approver", approver.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, FromEntry(entry))
}

// HandleReject handles the reject endpoint.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	approver, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	entryID, err := domain.ParseEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	req, ok := shared.DecodeAndPrepare[RejectRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.gate.Reject(ctx, entryID, approver, req.Reason); err != nil {
		h.logger.WarnContext(ctx, "rejection refused",
			"request_id", middleware.GetRequestID(ctx),
			"entry_id", entryID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReceipt handles the receipt endpoint.
func (h *Handler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requestedBy, ok := h.actor(w, ctx)
	if !ok {
		return
	}

	entryID, err := domain.ParseEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	rec, err := h.receipts.Generate(ctx, entryID, requestedBy)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) actor(w http.ResponseWriter, ctx context.Context) (domain.UserID, bool) {
	userID, err := domain.ParseUserID(middleware.GetUserID(ctx))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.UserID{}, false
	}
	return userID, true
}
