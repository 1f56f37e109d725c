// Package audit captures custody-significant actions as events, decoupled
// from the ledger's own hash-chained record. The ledger is the legal record;
// audit events feed monitoring, alerting, and the case timeline.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose, which
// drives retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/procedural significance:
	// custody appends, approvals, rejections, disposals.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to forensics and alerting:
	// integrity failures, self-approval attempts, out-of-order approvals.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging:
	// history reads, receipt issuance.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// ItemID is the evidence item the event concerns.
	ItemID string
	// EntryID is the custody entry involved, when there is one.
	EntryID string
	// Actor is the authenticated user who performed the action.
	Actor string
	Action string
	// Decision is the outcome where relevant (e.g. "approved", "rejected").
	Decision string
	Reason   string
	// Device is a human-readable summary of the client the action was
	// recorded from, for the audit trail.
	Device    string
	RequestID string
}

// LedgerEvent names the actions the custody service emits.
type LedgerEvent string

const (
	EventItemRegistered    LedgerEvent = "item_registered"
	EventContentDigestSet  LedgerEvent = "content_digest_set"
	EventEntryAppended     LedgerEvent = "entry_appended"
	EventGateCreated       LedgerEvent = "gate_created"
	EventEntryApproved     LedgerEvent = "entry_approved"
	EventEntryRejected     LedgerEvent = "entry_rejected"
	EventEntryFinalized    LedgerEvent = "entry_finalized"
	EventApprovalViolation LedgerEvent = "approval_violation"
	EventChainMismatch     LedgerEvent = "chain_verification_failed"
	EventReceiptIssued     LedgerEvent = "receipt_issued"
)

// eventCategories maps each ledger event to its category.
var eventCategories = map[LedgerEvent]EventCategory{
	EventItemRegistered:   CategoryCompliance,
	EventContentDigestSet: CategoryCompliance,
	EventEntryAppended:    CategoryCompliance,
	EventGateCreated:      CategoryCompliance,
	EventEntryApproved:    CategoryCompliance,
	EventEntryRejected:    CategoryCompliance,
	EventEntryFinalized:   CategoryCompliance,

	EventApprovalViolation: CategorySecurity,
	EventChainMismatch:     CategorySecurity,

	EventReceiptIssued: CategoryOperations,
}

// Category returns the EventCategory for this event. Unknown events default
// to CategoryOperations.
func (e LedgerEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
