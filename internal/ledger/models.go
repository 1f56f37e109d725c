// Package ledger implements the append-only chain-of-custody record for
// evidence items: the custody entry state machine, the four-eyes approval
// gate for irreversible actions, and chain digest maintenance.
package ledger

import (
	"time"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// EntryStatus tracks an entry's position in the approval lifecycle. The only
// legal transition is PROVISIONAL -> FINAL; rejected entries stay PROVISIONAL
// forever and are excluded from history by their gate's REJECTED status.
type EntryStatus string

const (
	StatusProvisional EntryStatus = "PROVISIONAL"
	StatusFinal       EntryStatus = "FINAL"
)

// Entry is one recorded custody action for an evidence item. Once FINAL it is
// immutable forever; corrections are new entries referencing the corrected one.
//
// Seq and Digest are zero until finalization: chain position is determined by
// finalization order, not creation order, so both are assigned at the moment
// an entry becomes FINAL.
type Entry struct {
	ID            domain.EntryID
	ItemID        domain.EvidenceID
	Seq           int64
	Action        domain.CustodyAction
	FromCustodian string
	ToCustodian   string
	Location      string
	Purpose       string
	SignatureRef  string
	RecordedBy    domain.UserID
	RecordedVia   string
	CorrectsEntry domain.EntryID
	Status        EntryStatus
	PrevDigest    string
	Digest        string
	CreatedAt     time.Time
	FinalizedAt   *time.Time
}

// IsFinal reports whether the entry is part of official custody history.
func (e *Entry) IsFinal() bool { return e.Status == StatusFinal }

// GateStatus is the approval state of a gated entry.
type GateStatus string

const (
	GatePending  GateStatus = "PENDING"
	GateApproved GateStatus = "APPROVED"
	GateRejected GateStatus = "REJECTED"
)

// ApprovalRecord is the four-eyes decision attached 1:1 to a gated entry.
// Rejection is a first-class, auditable outcome distinct from "not yet
// decided", which is why this is a three-state record and not a bool.
type ApprovalRecord struct {
	EntryID     domain.EntryID
	ItemID      domain.EvidenceID
	Status      GateStatus
	RequestedBy domain.UserID
	RequestedAt time.Time
	Approver    domain.UserID
	DecidedAt   *time.Time
	Reason      string
}

// ValidateTransition checks whether action may follow the current custody
// state. last is the latest FINAL entry, or nil when the item has no custody
// history yet. from is the from-custodian named on the incoming request.
//
// Rules:
//   - first action must be COLLECTED or SEIZED;
//   - nothing follows a FINAL terminal entry;
//   - custody must flow from whoever currently holds the item, so from must
//     match the latest FINAL entry's to-custodian.
func ValidateTransition(last *Entry, action domain.CustodyAction, from string) error {
	if last == nil {
		if !action.IsInitial() {
			return dErrors.Newf(dErrors.CodeInvalidTransition,
				"custody must open with COLLECTED or SEIZED, got %s", action)
		}
		return nil
	}
	if last.Action.IsTerminal() {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"entry already %s - no further custody actions permitted", last.Action)
	}
	if action.IsInitial() {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"%s is only valid as the first custody action", action)
	}
	if from != last.ToCustodian {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"custody flows from %q, not %q", last.ToCustodian, from)
	}
	return nil
}
