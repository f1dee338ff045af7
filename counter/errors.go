package counter

import "errors"

var (
	// ErrUnknownCounter is returned when a query or lookup references a key the
	// registry does not hold.
	ErrUnknownCounter = errors.New("unknown counter")

	// ErrInvalidWindowQuery is returned when a window anchored at the newest event
	// is requested from a counter that has no events.
	ErrInvalidWindowQuery = errors.New("invalid window query")
)
