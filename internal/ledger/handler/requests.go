package handler

import (
	"strings"

	"custodia/internal/ledger"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// AppendRequest is the HTTP request body for POST /evidence/{id}/custody.
type AppendRequest struct {
	Action        string `json:"action"`
	FromCustodian string `json:"from_custodian"`
	ToCustodian   string `json:"to_custodian"`
	Location      string `json:"location"`
	Purpose       string `json:"purpose"`
	SignatureRef  string `json:"signature_ref"`
	CorrectsEntry string `json:"corrects_entry"`

	// Parsed values (populated by Validate)
	parsedAction   domain.CustodyAction
	parsedCorrects domain.EntryID
}

// Validate validates and parses the request.
func (r *AppendRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}

	action, err := domain.ParseCustodyAction(strings.TrimSpace(r.Action))
	if err != nil {
		return err
	}
	r.parsedAction = action

	r.ToCustodian = strings.TrimSpace(r.ToCustodian)
	if r.ToCustodian == "" {
		return dErrors.New(dErrors.CodeValidation, "to_custodian is required")
	}
	r.FromCustodian = strings.TrimSpace(r.FromCustodian)
	if !action.IsInitial() && r.FromCustodian == "" {
		return dErrors.New(dErrors.CodeValidation, "from_custodian is required")
	}

	r.CorrectsEntry = strings.TrimSpace(r.CorrectsEntry)
	if r.CorrectsEntry != "" {
		corrects, err := domain.ParseEntryID(r.CorrectsEntry)
		if err != nil {
			return err
		}
		r.parsedCorrects = corrects
	}
	return nil
}

// ToInput converts the validated request into a service input. The item id,
// actor, and device come from the route and request context, not the body.
func (r *AppendRequest) ToInput(itemID domain.EvidenceID, actor domain.UserID, device string) ledger.AppendInput {
	return ledger.AppendInput{
		ItemID:        itemID,
		Action:        r.parsedAction,
		FromCustodian: r.FromCustodian,
		ToCustodian:   r.ToCustodian,
		Location:      strings.TrimSpace(r.Location),
		Purpose:       strings.TrimSpace(r.Purpose),
		SignatureRef:  strings.TrimSpace(r.SignatureRef),
		CorrectsEntry: r.parsedCorrects,
		RecordedBy:    actor,
		RecordedVia:   device,
	}
}

// RejectRequest is the HTTP request body for the reject endpoint.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Validate requires a reason; a silent rejection is useless in an audit.
func (r *RejectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}
