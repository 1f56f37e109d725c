package handler

import (
	"time"

	"custodia/internal/evidence"
)

// ItemResponse is the HTTP representation of an evidence item.
type ItemResponse struct {
	ID             string    `json:"id"`
	CaseID         string    `json:"case_id"`
	SeizureID      string    `json:"seizure_id,omitempty"`
	EvidenceNumber string    `json:"evidence_number"`
	Label          string    `json:"label"`
	Category       string    `json:"category"`
	StorageLoc     string    `json:"storage_location,omitempty"`
	RetentionPlan  string    `json:"retention_plan,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	ContentDigest  string    `json:"content_digest,omitempty"`
	Disposed       bool      `json:"disposed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FromItem converts a domain item to an HTTP response.
func FromItem(item *evidence.Item) *ItemResponse {
	resp := &ItemResponse{
		ID:             item.ID.String(),
		CaseID:         item.CaseID.String(),
		EvidenceNumber: item.EvidenceNumber,
		Label:          item.Label,
		Category:       item.Category.String(),
		StorageLoc:     item.StorageLoc,
		RetentionPlan:  item.RetentionPlan,
		Notes:          item.Notes,
		ContentDigest:  item.ContentDigest,
		Disposed:       item.Disposed,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
	if !item.SeizureID.IsNil() {
		resp.SeizureID = item.SeizureID.String()
	}
	return resp
}
