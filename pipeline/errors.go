package pipeline

import "errors"

// Pipeline errors.
var (
	// ErrTooFewChildren is returned for a difference or intersection node
	// without children.
	ErrTooFewChildren = errors.New("pipeline: difference and intersection need at least 2 children")

	// ErrClosed is returned when a closed session is used.
	ErrClosed = errors.New("pipeline: session closed")
)
