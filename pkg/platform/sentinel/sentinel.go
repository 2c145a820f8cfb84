package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain errors:
// - ErrNotFound: record does not exist at the requested location
// - ErrConflict: a logical key is already held by another active record
// - ErrInvalidState: record moved (e.g. archived) while a write was in flight
// - ErrUnavailable: backing store temporarily unavailable
// - ErrPartialWrite: the authoritative write landed, a secondary copy did not
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrPartialWrite = errors.New("partial write")
)
