package handler

import (
	"time"

	"custodia/internal/integrity"
	"custodia/internal/ledger"
)

// EntryResponse is the HTTP representation of a custody entry. Seq, digests,
// and finalized_at are omitted while the entry is provisional.
type EntryResponse struct {
	ID            string     `json:"id"`
	ItemID        string     `json:"evidence_id"`
	Seq           int64      `json:"seq,omitempty"`
	Action        string     `json:"action"`
	FromCustodian string     `json:"from_custodian,omitempty"`
	ToCustodian   string     `json:"to_custodian"`
	Location      string     `json:"location,omitempty"`
	Purpose       string     `json:"purpose,omitempty"`
	SignatureRef  string     `json:"signature_ref,omitempty"`
	RecordedBy    string     `json:"recorded_by"`
	RecordedVia   string     `json:"recorded_via,omitempty"`
	CorrectsEntry string     `json:"corrects_entry,omitempty"`
	Status        string     `json:"status"`
	PrevDigest    string     `json:"prev_digest,omitempty"`
	Digest        string     `json:"digest,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
}

// FromEntry converts a domain entry to an HTTP response.
func FromEntry(e *ledger.Entry) *EntryResponse {
	resp := &EntryResponse{
		ID:            e.ID.String(),
		ItemID:        e.ItemID.String(),
		Seq:           e.Seq,
		Action:        e.Action.String(),
		FromCustodian: e.FromCustodian,
		ToCustodian:   e.ToCustodian,
		Location:      e.Location,
		Purpose:       e.Purpose,
		SignatureRef:  e.SignatureRef,
		RecordedBy:    e.RecordedBy.String(),
		RecordedVia:   e.RecordedVia,
		Status:        string(e.Status),
		PrevDigest:    e.PrevDigest,
		Digest:        e.Digest,
		CreatedAt:     e.CreatedAt,
		FinalizedAt:   e.FinalizedAt,
	}
	if !e.CorrectsEntry.IsNil() {
		resp.CorrectsEntry = e.CorrectsEntry.String()
	}
	return resp
}

// HistoryResponse is the HTTP response for the custody history endpoint.
type HistoryResponse struct {
	Entries []*EntryResponse `json:"entries"`
}

// FromEntries converts a history slice to an HTTP response.
func FromEntries(entries []*ledger.Entry) *HistoryResponse {
	out := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = FromEntry(e)
	}
	return &HistoryResponse{Entries: out}
}

// PendingResponse is the HTTP response for the pending approval queue.
type PendingResponse struct {
	Pending []*PendingEntryResponse `json:"pending"`
}

// PendingEntryResponse pairs a held entry with its approval state.
type PendingEntryResponse struct {
	Entry       *EntryResponse `json:"entry"`
	RequestedBy string         `json:"requested_by"`
	RequestedAt time.Time      `json:"requested_at"`
}

// FromPending converts the approval queue to an HTTP response.
func FromPending(queue []*ledger.PendingApproval) *PendingResponse {
	out := make([]*PendingEntryResponse, len(queue))
	for i, p := range queue {
		out[i] = &PendingEntryResponse{
			Entry:       FromEntry(p.Entry),
			RequestedBy: p.Gate.RequestedBy.String(),
			RequestedAt: p.Gate.RequestedAt,
		}
	}
	return &PendingResponse{Pending: out}
}

// VerifyResponse is the HTTP response for chain verification.
type VerifyResponse struct {
	OK      bool  `json:"ok"`
	Checked int   `json:"checked"`
	BadSeq  int64 `json:"bad_seq,omitempty"`
}

// FromReport converts a chain report to an HTTP response.
func FromReport(r integrity.ChainReport) *VerifyResponse {
	return &VerifyResponse{OK: r.OK, Checked: r.Checked, BadSeq: r.BadSeq}
}
