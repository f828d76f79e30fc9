package resource

import "errors"

// Resource errors.
var (
	// ErrAlreadyDisposed is returned when a resource is disposed twice.
	// It signals a logic bug in the owner, so it is never silently ignored.
	ErrAlreadyDisposed = errors.New("resource: already disposed")

	// ErrNoRelease is returned when a handle does not expose a release operation.
	ErrNoRelease = errors.New("resource: handle has no release method")

	// ErrForeignResource is returned when a resource is disposed through a
	// manager that did not create it.
	ErrForeignResource = errors.New("resource: resource belongs to another manager")
)
