package ops

import "errors"

// Operation errors.
var (
	// ErrNoInputs is returned when an operation receives no meshes.
	ErrNoInputs = errors.New("ops: No child geometries provided")

	// ErrSubtractArity is returned when subtract has a base but nothing to remove.
	ErrSubtractArity = errors.New("ops: subtract needs a base and at least one subtrahend")

	// ErrNilMesh is returned when an input mesh is nil.
	ErrNilMesh = errors.New("ops: nil input mesh")
)
