package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a uniqueness or concurrency constraint was violated
// - ErrAlreadyResolved: an approval record was already decided
// - ErrInvalidState: entity in wrong state for requested operation
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyResolved = errors.New("already resolved")
	ErrInvalidState    = errors.New("invalid state")
	ErrUnavailable     = errors.New("unavailable")
)
