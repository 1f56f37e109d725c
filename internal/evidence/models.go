// Package evidence is the registry of evidence items: identity and static
// metadata. It has no dependency on the custody ledger; the ledger validates
// item existence through this package's read side.
package evidence

import (
	"time"

	"custodia/pkg/domain"
)

// Item is one piece of physical or digital evidence logged against a seizure.
//
// ContentDigest is write-once: once set it is immutable, and re-imaging
// produces a new item rather than a mutation. Disposed mirrors the ledger's
// terminal state and only ever flips false -> true.
type Item struct {
	ID             domain.EvidenceID
	CaseID         domain.CaseID
	SeizureID      domain.SeizureID
	EvidenceNumber string
	Label          string
	Category       domain.EvidenceCategory
	StorageLoc     string
	RetentionPlan  string
	Notes          string
	ContentDigest  string
	Disposed       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasContentDigest reports whether the item's file content has been fixed.
func (i *Item) HasContentDigest() bool { return i.ContentDigest != "" }
