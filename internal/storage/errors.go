package storage

import "errors"

// Storage errors. Event and report stores are append-only.
var (
	// ErrNotFound is returned when a requested report or case does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an event or report id is already stored.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedKind is returned when a store or router is handed an event
	// kind it does not hold.
	ErrUnsupportedKind = errors.New("unsupported event kind")
)
