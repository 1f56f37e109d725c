package handler

import (
	"strings"

	"custodia/internal/evidence"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// RegisterRequest is the HTTP request body for POST /evidence.
type RegisterRequest struct {
	CaseID        string `json:"case_id"`
	SeizureID     string `json:"seizure_id"`
	Label         string `json:"label"`
	Category      string `json:"category"`
	StorageLoc    string `json:"storage_location"`
	RetentionPlan string `json:"retention_plan"`
	Notes         string `json:"notes"`

	// Parsed values (populated by Validate)
	parsedCaseID    domain.CaseID
	parsedSeizureID domain.SeizureID
	parsedCategory  domain.EvidenceCategory
}

// Validate validates and parses the request.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}

	caseID, err := domain.ParseCaseID(strings.TrimSpace(r.CaseID))
	if err != nil {
		return err
	}
	r.parsedCaseID = caseID

	r.SeizureID = strings.TrimSpace(r.SeizureID)
	if r.SeizureID != "" {
		seizureID, err := domain.ParseSeizureID(r.SeizureID)
		if err != nil {
			return err
		}
		r.parsedSeizureID = seizureID
	}

	r.Label = strings.TrimSpace(r.Label)
	if r.Label == "" {
		return dErrors.New(dErrors.CodeValidation, "label is required")
	}
	if len(r.Label) > 255 {
		return dErrors.New(dErrors.CodeValidation, "label must be at most 255 characters")
	}

	category, err := domain.ParseEvidenceCategory(r.Category)
	if err != nil {
		return err
	}
	r.parsedCategory = category

	return nil
}

// ToInput converts the validated request into a service input.
func (r *RegisterRequest) ToInput() evidence.CreateInput {
	return evidence.CreateInput{
		CaseID:        r.parsedCaseID,
		SeizureID:     r.parsedSeizureID,
		Label:         r.Label,
		Category:      r.parsedCategory,
		StorageLoc:    strings.TrimSpace(r.StorageLoc),
		RetentionPlan: strings.TrimSpace(r.RetentionPlan),
		Notes:         r.Notes,
	}
}

// SetDigestRequest is the HTTP request body for PUT /evidence/{id}/digest.
type SetDigestRequest struct {
	ContentDigest string `json:"content_digest"`
}

// Validate checks the digest shape; the service enforces write-once.
func (r *SetDigestRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	r.ContentDigest = strings.ToLower(strings.TrimSpace(r.ContentDigest))
	if len(r.ContentDigest) != 64 {
		return dErrors.New(dErrors.CodeValidation, "content_digest must be a hex sha-256")
	}
	for _, c := range r.ContentDigest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return dErrors.New(dErrors.CodeValidation, "content_digest must be a hex sha-256")
		}
	}
	return nil
}

// UpdateMetadataRequest is the HTTP request body for PATCH /evidence/{id}.
type UpdateMetadataRequest struct {
	StorageLoc string `json:"storage_location"`
	Notes      string `json:"notes"`
}

// Validate rejects empty updates.
func (r *UpdateMetadataRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	r.StorageLoc = strings.TrimSpace(r.StorageLoc)
	if r.StorageLoc == "" && r.Notes == "" {
		return dErrors.New(dErrors.CodeValidation, "nothing to update")
	}
	return nil
}
