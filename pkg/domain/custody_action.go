package domain

import dErrors "custodia/pkg/domain-errors"

// CustodyAction is a domain value identifying what happened to an evidence
// item in one custody entry.
//
// Invariant: the value must be one of the supported actions. The upstream
// client types widen this to arbitrary strings for form flexibility; the
// ledger boundary re-models it as a closed enum and rejects anything else.
//
// Usage: construct via ParseCustodyAction at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type CustodyAction string

// Supported custody actions.
const (
	ActionCollected      CustodyAction = "COLLECTED"
	ActionSeized         CustodyAction = "SEIZED"
	ActionTransferred    CustodyAction = "TRANSFERRED"
	ActionAnalyzed       CustodyAction = "ANALYZED"
	ActionPresentedCourt CustodyAction = "PRESENTED_COURT"
	ActionReturned       CustodyAction = "RETURNED"
	ActionDisposed       CustodyAction = "DISPOSED"
)

// validCustodyActions is the single source of truth for valid actions.
var validCustodyActions = map[CustodyAction]bool{
	ActionCollected:      true,
	ActionSeized:         true,
	ActionTransferred:    true,
	ActionAnalyzed:       true,
	ActionPresentedCourt: true,
	ActionReturned:       true,
	ActionDisposed:       true,
}

// ParseCustodyAction constructs a CustodyAction from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported; no
// other errors are expected.
func ParseCustodyAction(s string) (CustodyAction, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "action cannot be empty")
	}
	a := CustodyAction(s)
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid custody action: "+s)
	}
	return a, nil
}

// IsValid checks if the action is one of the supported enum values.
func (a CustodyAction) IsValid() bool {
	return validCustodyActions[a]
}

// IsInitial reports whether the action may open an item's custody chain.
func (a CustodyAction) IsInitial() bool {
	return a == ActionCollected || a == ActionSeized
}

// IsTerminal reports whether the action closes an item's custody chain. No
// further custody actions are permitted once a terminal entry is FINAL.
func (a CustodyAction) IsTerminal() bool {
	return a == ActionReturned || a == ActionDisposed
}

// RequiresApproval reports whether the action is gated behind four-eyes
// approval. Terminal actions are irreversible, so both are gated.
func (a CustodyAction) RequiresApproval() bool {
	return a.IsTerminal()
}

// String returns the string representation of the action.
func (a CustodyAction) String() string {
	return string(a)
}
