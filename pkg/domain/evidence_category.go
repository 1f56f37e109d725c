package domain

import dErrors "custodia/pkg/domain-errors"

// EvidenceCategory classifies what kind of thing an evidence item is. Digital
// items are the only category expected to carry a content digest, but the
// registry does not enforce that - paper scans are DOCUMENT items with digests.
type EvidenceCategory string

// Supported evidence categories.
const (
	CategoryPhysical EvidenceCategory = "PHYSICAL"
	CategoryDigital  EvidenceCategory = "DIGITAL"
	CategoryDocument EvidenceCategory = "DOCUMENT"
)

var validEvidenceCategories = map[EvidenceCategory]bool{
	CategoryPhysical: true,
	CategoryDigital:  true,
	CategoryDocument: true,
}

// ParseEvidenceCategory constructs an EvidenceCategory from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseEvidenceCategory(s string) (EvidenceCategory, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "category cannot be empty")
	}
	c := EvidenceCategory(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid evidence category: "+s)
	}
	return c, nil
}

// IsValid checks if the category is one of the supported enum values.
func (c EvidenceCategory) IsValid() bool {
	return validEvidenceCategories[c]
}

// String returns the string representation of the category.
func (c EvidenceCategory) String() string {
	return string(c)
}
