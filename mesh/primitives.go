package mesh

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// DefaultSegments is the tessellation used when a primitive asks for fewer
// than MinSegments fragments.
const DefaultSegments = 32

// MinSegments is the smallest number of fragments a curved primitive uses.
const MinSegments = 3

// ErrInvalidShape is returned for primitive parameters that describe no solid.
var ErrInvalidShape = errors.New("mesh: invalid primitive parameters")

// Cube creates a box with the given extents. With center false the box spans
// [0, size] on each axis; with center true it is centered on the origin.
func Cube(size [3]float32, center bool) (*Mesh, error) {
	for i, s := range size {
		if !(s > 0) || math32.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: cube size[%d] = %v", ErrInvalidShape, i, s)
		}
	}
	var off [3]float32
	if center {
		off = [3]float32{-size[0] / 2, -size[1] / 2, -size[2] / 2}
	}
	m := &Mesh{Positions: make([]float32, 0, 8*3)}
	// Vertex i sits at (bit0, bit1, bit2) scaled by size.
	for i := 0; i < 8; i++ {
		m.Positions = append(m.Positions,
			off[0]+size[0]*float32(i&1),
			off[1]+size[1]*float32(i>>1&1),
			off[2]+size[2]*float32(i>>2&1),
		)
	}
	// Quads wound counter-clockwise seen from outside.
	quads := [6][4]uint32{
		{0, 2, 3, 1}, // -z
		{4, 5, 7, 6}, // +z
		{0, 1, 5, 4}, // -y
		{2, 6, 7, 3}, // +y
		{0, 4, 6, 2}, // -x
		{1, 3, 7, 5}, // +x
	}
	m.Indices = make([]uint32, 0, 36)
	for _, q := range quads {
		m.Indices = append(m.Indices, q[0], q[1], q[2], q[0], q[2], q[3])
	}
	return m, nil
}

// Sphere creates a UV sphere centered on the origin. segments is the number
// of fragments around the equator; the number of rings is half of it.
func Sphere(radius float32, segments int) (*Mesh, error) {
	if !(radius > 0) || math32.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: sphere radius = %v", ErrInvalidShape, radius)
	}
	segments = clampSegments(segments)
	rings := max(segments/2, 2)

	m := &Mesh{}
	m.Positions = append(m.Positions, 0, 0, radius)
	for k := 1; k < rings; k++ {
		theta := math32.Pi * float32(k) / float32(rings)
		z := radius * math32.Cos(theta)
		r := radius * math32.Sin(theta)
		for j := 0; j < segments; j++ {
			phi := 2 * math32.Pi * float32(j) / float32(segments)
			m.Positions = append(m.Positions, r*math32.Cos(phi), r*math32.Sin(phi), z)
		}
	}
	m.Positions = append(m.Positions, 0, 0, -radius)

	north := uint32(0)
	south := uint32(m.VertexCount() - 1)
	ring := func(k, j int) uint32 {
		return uint32(1 + (k-1)*segments + j%segments)
	}
	for j := 0; j < segments; j++ {
		m.Indices = append(m.Indices, north, ring(1, j), ring(1, j+1))
	}
	for k := 1; k < rings-1; k++ {
		for j := 0; j < segments; j++ {
			a, b := ring(k, j), ring(k+1, j)
			c, d := ring(k+1, j+1), ring(k, j+1)
			m.Indices = append(m.Indices, a, b, c, a, c, d)
		}
	}
	for j := 0; j < segments; j++ {
		m.Indices = append(m.Indices, south, ring(rings-1, j+1), ring(rings-1, j))
	}
	return m, nil
}

// Cylinder creates a cylinder or cone along Z with bottom radius r1 and top
// radius r2. Either radius may be zero (a cone), not both. With center false
// it spans z in [0, height]; with center true it is centered on the origin.
func Cylinder(height, r1, r2 float32, segments int, center bool) (*Mesh, error) {
	switch {
	case !(height > 0) || math32.IsInf(height, 0):
		return nil, fmt.Errorf("%w: cylinder height = %v", ErrInvalidShape, height)
	case r1 < 0 || r2 < 0 || (r1 == 0 && r2 == 0):
		return nil, fmt.Errorf("%w: cylinder radii = (%v, %v)", ErrInvalidShape, r1, r2)
	}
	segments = clampSegments(segments)

	z0, z1 := float32(0), height
	if center {
		z0, z1 = -height/2, height/2
	}

	m := &Mesh{}
	// addRing appends a ring, or a single apex vertex for a zero radius,
	// and returns a lookup for its j-th vertex.
	addRing := func(r, z float32) func(j int) uint32 {
		base := uint32(m.VertexCount())
		if r == 0 {
			m.Positions = append(m.Positions, 0, 0, z)
			return func(int) uint32 { return base }
		}
		for j := 0; j < segments; j++ {
			phi := 2 * math32.Pi * float32(j) / float32(segments)
			m.Positions = append(m.Positions, r*math32.Cos(phi), r*math32.Sin(phi), z)
		}
		return func(j int) uint32 { return base + uint32(j%segments) }
	}
	bottom := addRing(r1, z0)
	top := addRing(r2, z1)

	for j := 0; j < segments; j++ {
		a, b := bottom(j), bottom(j+1)
		c, d := top(j+1), top(j)
		switch {
		case r2 == 0:
			m.Indices = append(m.Indices, a, b, c)
		case r1 == 0:
			m.Indices = append(m.Indices, a, c, d)
		default:
			m.Indices = append(m.Indices, a, b, c, a, c, d)
		}
	}
	if r1 > 0 {
		cb := uint32(m.VertexCount())
		m.Positions = append(m.Positions, 0, 0, z0)
		for j := 0; j < segments; j++ {
			m.Indices = append(m.Indices, cb, bottom(j+1), bottom(j))
		}
	}
	if r2 > 0 {
		ct := uint32(m.VertexCount())
		m.Positions = append(m.Positions, 0, 0, z1)
		for j := 0; j < segments; j++ {
			m.Indices = append(m.Indices, ct, top(j), top(j+1))
		}
	}
	return m, nil
}

func clampSegments(n int) int {
	if n < MinSegments {
		return DefaultSegments
	}
	return n
}
