package storage

import "errors"

// Errors returned by every store implementation. Backends translate their
// native errors (pgconn unique violations, empty result sets) into these.
var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput rejects nil records and records missing key fields.
	ErrInvalidInput = errors.New("invalid input")
)
