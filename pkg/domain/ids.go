// Package domain holds value types shared across the custody ledger: typed
// UUID identifiers and the closed action/category enums.
//
// IDs are distinct types over uuid.UUID so an evidence id can never be passed
// where an entry id is expected. Construct via the Parse functions at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "custodia/pkg/domain-errors"
)

type (
	// EvidenceID identifies an evidence item.
	EvidenceID uuid.UUID
	// EntryID identifies a custody entry.
	EntryID uuid.UUID
	// CaseID identifies the owning investigative case.
	CaseID uuid.UUID
	// SeizureID identifies the seizure an item was logged under.
	SeizureID uuid.UUID
	// UserID identifies an authenticated user. Identity resolution is
	// external; the ledger only trusts and records the id.
	UserID uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id cannot be empty", kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "invalid %s id", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id cannot be nil", kind)
	}
	return parsed, nil
}

// ParseEvidenceID validates and converts an external string into an EvidenceID.
func ParseEvidenceID(s string) (EvidenceID, error) {
	u, err := parseUUID(s, "evidence")
	return EvidenceID(u), err
}

// ParseEntryID validates and converts an external string into an EntryID.
func ParseEntryID(s string) (EntryID, error) {
	u, err := parseUUID(s, "entry")
	return EntryID(u), err
}

// ParseCaseID validates and converts an external string into a CaseID.
func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case")
	return CaseID(u), err
}

// ParseSeizureID validates and converts an external string into a SeizureID.
func ParseSeizureID(s string) (SeizureID, error) {
	u, err := parseUUID(s, "seizure")
	return SeizureID(u), err
}

// ParseUserID validates and converts an external string into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

func (id EvidenceID) String() string { return uuid.UUID(id).String() }
func (id EntryID) String() string    { return uuid.UUID(id).String() }
func (id CaseID) String() string     { return uuid.UUID(id).String() }
func (id SeizureID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }

func (id EvidenceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CaseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SeizureID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// NewEvidenceID mints a fresh evidence id.
func NewEvidenceID() EvidenceID { return EvidenceID(uuid.New()) }

// NewEntryID mints a fresh entry id.
func NewEntryID() EntryID { return EntryID(uuid.New()) }
