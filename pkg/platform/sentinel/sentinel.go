package sentinel

import "errors"

// Sentinel errors for record store facts. Stores return these (optionally wrapped)
// so services can translate them into coded domain errors:
//   - ErrNotFound: record does not exist (or is archived when the lookup excludes archived rows)
//   - ErrAlreadyUsed: a unique key (standard code, zone code) is taken
//   - ErrConflict: a concurrent write changed the record underneath the caller
//   - ErrUnavailable: backing service (redis, kafka) cannot be reached
//
// Validation failures use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
