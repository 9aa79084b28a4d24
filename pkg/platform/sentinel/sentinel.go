package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: the entry does not exist, or has already been evicted
//   - ErrExpired: the entry's lifetime ended before it could be stored
var (
	ErrNotFound = errors.New("not found")
	ErrExpired  = errors.New("expired")
)
