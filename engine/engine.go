// Package engine defines the boundary to the native boolean-geometry engine
// and the process-wide loader that obtains it.
//
// The conversion core calls exactly four kinds of native primitive: object
// construction and destruction, boolean operations, transform application
// and material ID reservation. Everything else is engine-agnostic.
//
// Engines register themselves by name, usually from an init function:
//
//	func init() {
//	    engine.Register("bsp", func(context.Context) (engine.Engine, error) {
//	        return New(), nil
//	    })
//	}
package engine

import (
	"errors"
	"fmt"
)

// Common engine errors.
var (
	// ErrEngineNotAvailable is returned when no engine is registered under
	// the requested name, or none at all.
	ErrEngineNotAvailable = errors.New("engine: not available")

	// ErrNotLoaded is returned when an engine is required before Load completed.
	ErrNotLoaded = errors.New("engine: not loaded")

	// ErrReleased is returned when a released object is used.
	ErrReleased = errors.New("engine: object already released")

	// ErrForeignObject is returned when an object from another engine is passed in.
	ErrForeignObject = errors.New("engine: object belongs to a different engine")

	// ErrInvalidMesh is returned when MeshGL data cannot form an object.
	ErrInvalidMesh = errors.New("engine: invalid mesh data")

	// ErrIDsExhausted is returned when an engine has no material IDs left
	// below MaxReservedID.
	ErrIDsExhausted = errors.New("engine: material ID space exhausted")
)

// MaxReservedID is the highest material ID an engine may hand out.
// IDs above it belong to local fallback counters.
const MaxReservedID uint32 = 1<<24 - 1

// Op is a boolean operation.
type Op uint8

const (
	// OpUnion keeps everything inside either operand.
	OpUnion Op = iota
	// OpSubtract keeps what is inside the first operand but not the second.
	OpSubtract
	// OpIntersect keeps what is inside both operands.
	OpIntersect
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpUnion:
		return "union"
	case OpSubtract:
		return "subtract"
	case OpIntersect:
		return "intersect"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// MeshGL is the flat mesh layout exchanged with the engine.
//
// VertProperties holds NumProp floats per vertex, the first three being
// the position. TriVerts holds three vertex indices per triangle.
// RunIndex partitions TriVerts into runs (len(RunIndex) == runs+1, values
// are offsets into TriVerts) and RunOriginalID tags each run with a
// material ID.
type MeshGL struct {
	NumProp        uint32
	VertProperties []float32
	TriVerts       []uint32
	RunIndex       []uint32
	RunOriginalID  []uint32
}

// NumVert returns the number of vertices.
func (m *MeshGL) NumVert() int {
	if m.NumProp == 0 {
		return 0
	}
	return len(m.VertProperties) / int(m.NumProp)
}

// NumTri returns the number of triangles.
func (m *MeshGL) NumTri() int {
	return len(m.TriVerts) / 3
}

// Validate checks the layout invariants.
func (m *MeshGL) Validate() error {
	if m.NumProp < 3 {
		return fmt.Errorf("%w: NumProp = %d, want >= 3", ErrInvalidMesh, m.NumProp)
	}
	if len(m.VertProperties)%int(m.NumProp) != 0 {
		return fmt.Errorf("%w: %d properties for NumProp %d", ErrInvalidMesh, len(m.VertProperties), m.NumProp)
	}
	if len(m.TriVerts)%3 != 0 {
		return fmt.Errorf("%w: %d triangle indices", ErrInvalidMesh, len(m.TriVerts))
	}
	nv := uint32(m.NumVert())
	for i, v := range m.TriVerts {
		if v >= nv {
			return fmt.Errorf("%w: triangle index %d at %d out of range", ErrInvalidMesh, v, i)
		}
	}
	if len(m.RunIndex) == 0 {
		if len(m.RunOriginalID) != 0 {
			return fmt.Errorf("%w: run IDs without run index", ErrInvalidMesh)
		}
		return nil
	}
	if len(m.RunIndex) != len(m.RunOriginalID)+1 {
		return fmt.Errorf("%w: %d run offsets for %d run IDs", ErrInvalidMesh, len(m.RunIndex), len(m.RunOriginalID))
	}
	prev := uint32(0)
	for i, off := range m.RunIndex {
		if off < prev || off > uint32(len(m.TriVerts)) || off%3 != 0 {
			return fmt.Errorf("%w: run offset %d at %d", ErrInvalidMesh, off, i)
		}
		prev = off
	}
	if m.RunIndex[0] != 0 || prev != uint32(len(m.TriVerts)) {
		return fmt.Errorf("%w: runs do not cover all triangles", ErrInvalidMesh)
	}
	return nil
}

// Object is a handle to a solid owned by the engine.
// Release must be called exactly once; any use afterwards fails with ErrReleased.
type Object interface {
	// Release frees the native object.
	Release() error

	// MeshGL extracts the object's geometry.
	MeshGL() (MeshGL, error)

	// NumVert returns the vertex count, or 0 after release.
	NumVert() int

	// NumTri returns the triangle count, or 0 after release.
	NumTri() int
}

// Engine is a loaded native boolean-geometry engine.
//
// Engines are not required to be safe for concurrent use; callers serialize
// native calls.
type Engine interface {
	// Name returns the engine identifier (e.g., "bsp").
	Name() string

	// NewObject constructs a solid from mesh data. The caller owns the result.
	NewObject(m MeshGL) (Object, error)

	// Boolean combines two solids. Operands are not consumed; the caller
	// owns the result and remains responsible for releasing the operands.
	Boolean(a, b Object, op Op) (Object, error)

	// Transform returns a transformed copy of o. The matrix is 4x4 in
	// column-major order.
	Transform(o Object, columnMajor [16]float64) (Object, error)

	// ReserveIDs reserves n consecutive material IDs and returns the first.
	// Every reserved ID is at most MaxReservedID.
	ReserveIDs(n uint32) (uint32, error)

	// Close releases engine-wide resources.
	Close()
}
