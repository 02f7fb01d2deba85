package replay

import "errors"

// Replay errors
var (
	// ErrInvalidOrdering is returned when events are not properly ordered.
	ErrInvalidOrdering = errors.New("events are not in deterministic order")

	// ErrInvalidEvent is returned for an event whose payload does not match its type.
	ErrInvalidEvent = errors.New("event payload does not match its type")
)
