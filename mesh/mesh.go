// Package mesh defines the renderable triangle mesh handed to and returned
// from the conversion pipeline, together with primitive tessellation.
//
// A Mesh owns only Go memory. Native engine objects never appear here.
package mesh

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/chewxy/math32"

	"github.com/holistic-stack/ob-sub002/geom"
)

// Mesh validation errors.
var (
	// ErrInvalidPositions is returned when the position buffer is not a
	// multiple of three floats.
	ErrInvalidPositions = errors.New("mesh: position buffer length is not a multiple of 3")

	// ErrInvalidIndices is returned for a malformed index buffer.
	ErrInvalidIndices = errors.New("mesh: invalid index buffer")

	// ErrInvalidGroups is returned when material groups do not fit the triangles.
	ErrInvalidGroups = errors.New("mesh: invalid material groups")
)

// Group assigns a contiguous run of indices to one material.
// Start and Count are measured in indices (three per triangle).
type Group struct {
	Start         int
	Count         int
	MaterialIndex int
}

// Mesh is an indexed triangle mesh with optional per-triangle material groups.
//
// Positions holds three floats per vertex. Indices holds three entries per
// triangle; when Indices is nil every three consecutive vertices form a
// triangle. Normals, when present, parallels Positions. Groups reference
// Materials by index.
type Mesh struct {
	Positions []float32
	Normals   []float32
	Indices   []uint32
	Groups    []Group
	Materials []string
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	return len(m.Positions) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	if m == nil {
		return 0
	}
	if m.Indices == nil {
		return m.VertexCount() / 3
	}
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m.TriangleCount() == 0
}

// Index returns the vertex index of corner i, resolving non-indexed meshes.
func (m *Mesh) Index(i int) uint32 {
	if m.Indices == nil {
		return uint32(i)
	}
	return m.Indices[i]
}

// Vertex returns vertex i as a float64 point.
func (m *Mesh) Vertex(i uint32) geom.Vec3 {
	p := m.Positions[i*3 : i*3+3]
	return geom.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return nil
	}
	out := &Mesh{
		Positions: append([]float32(nil), m.Positions...),
		Normals:   append([]float32(nil), m.Normals...),
		Groups:    append([]Group(nil), m.Groups...),
		Materials: append([]string(nil), m.Materials...),
	}
	if m.Indices != nil {
		out.Indices = append([]uint32{}, m.Indices...)
	}
	if len(m.Normals) == 0 {
		out.Normals = nil
	}
	return out
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (m *Mesh) Bounds() geom.Box3 {
	b := geom.EmptyBox3()
	for i := 0; i < m.VertexCount(); i++ {
		b = b.ExpandByPoint(m.Vertex(uint32(i)))
	}
	return b
}

// Validate checks buffer shapes, index ranges and group coverage.
func (m *Mesh) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil mesh", ErrInvalidPositions)
	}
	if len(m.Positions)%3 != 0 {
		return ErrInvalidPositions
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Positions) {
		return fmt.Errorf("mesh: normal buffer has %d floats, want %d", len(m.Normals), len(m.Positions))
	}
	nv := uint32(m.VertexCount())
	if m.Indices == nil {
		if nv%3 != 0 {
			return fmt.Errorf("%w: %d vertices do not form whole triangles", ErrInvalidIndices, nv)
		}
	} else {
		if len(m.Indices)%3 != 0 {
			return fmt.Errorf("%w: length %d is not a multiple of 3", ErrInvalidIndices, len(m.Indices))
		}
		for i, idx := range m.Indices {
			if idx >= nv {
				return fmt.Errorf("%w: index %d at %d out of range [0,%d)", ErrInvalidIndices, idx, i, nv)
			}
		}
	}
	corners := m.TriangleCount() * 3
	for i, g := range m.Groups {
		switch {
		case g.Start < 0 || g.Count < 0 || g.Start+g.Count > corners:
			return fmt.Errorf("%w: group %d [%d,+%d) exceeds %d indices", ErrInvalidGroups, i, g.Start, g.Count, corners)
		case g.Start%3 != 0 || g.Count%3 != 0:
			return fmt.Errorf("%w: group %d is not triangle aligned", ErrInvalidGroups, i)
		case g.MaterialIndex < 0 || g.MaterialIndex >= len(m.Materials):
			return fmt.Errorf("%w: group %d references material %d of %d", ErrInvalidGroups, i, g.MaterialIndex, len(m.Materials))
		}
	}
	return nil
}

// MaterialOf returns the material of triangle t, or "" if no group covers it.
func (m *Mesh) MaterialOf(t int) string {
	corner := t * 3
	for _, g := range m.Groups {
		if corner >= g.Start && corner < g.Start+g.Count {
			return m.Materials[g.MaterialIndex]
		}
	}
	return ""
}

// WithMaterial returns the mesh with a single group covering every triangle.
// The receiver is modified and returned for chaining.
func (m *Mesh) WithMaterial(material string) *Mesh {
	m.Materials = []string{material}
	m.Groups = []Group{{Start: 0, Count: m.TriangleCount() * 3, MaterialIndex: 0}}
	return m
}

// WithDefaultMaterial assigns material to every triangle no group covers.
// Existing groups keep their materials. The receiver is modified and
// returned for chaining.
func (m *Mesh) WithDefaultMaterial(material string) *Mesh {
	if len(m.Groups) == 0 {
		return m.WithMaterial(material)
	}
	idx := slices.Index(m.Materials, material)
	groups := make([]Group, 0, len(m.Groups)+1)
	for _, g := range m.segments() {
		if g.MaterialIndex < 0 {
			if idx < 0 {
				idx = len(m.Materials)
				m.Materials = append(m.Materials, material)
			}
			g.MaterialIndex = idx
		}
		groups = append(groups, g)
	}
	m.Groups = groups
	return m
}

// ComputeNormals replaces Normals with area-weighted vertex normals.
func (m *Mesh) ComputeNormals() {
	normals := make([]float32, len(m.Positions))
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Index(t*3), m.Index(t*3+1), m.Index(t*3+2)
		n := m.Vertex(b).Sub(m.Vertex(a)).Cross(m.Vertex(c).Sub(m.Vertex(a)))
		for _, v := range [3]uint32{a, b, c} {
			normals[v*3] += float32(n[0])
			normals[v*3+1] += float32(n[1])
			normals[v*3+2] += float32(n[2])
		}
	}
	for i := 0; i+2 < len(normals); i += 3 {
		l := math32.Sqrt(normals[i]*normals[i] + normals[i+1]*normals[i+1] + normals[i+2]*normals[i+2])
		if l > 0 {
			normals[i] /= l
			normals[i+1] /= l
			normals[i+2] /= l
		}
	}
	m.Normals = normals
}

// Merge welds vertices closer than epsilon, drops triangles that collapse
// and returns the number of vertices removed. Normals are discarded.
// Triangles outside every group are kept, still ungrouped.
func (m *Mesh) Merge(epsilon float64) int {
	if epsilon <= 0 {
		epsilon = 1e-6
	}
	type key [3]int64
	before := m.VertexCount()
	remap := make([]uint32, before)
	seen := make(map[key]uint32, before)
	positions := make([]float32, 0, len(m.Positions))
	for i := 0; i < before; i++ {
		p := m.Vertex(uint32(i))
		k := key{
			int64(math.Round(p[0] / epsilon)),
			int64(math.Round(p[1] / epsilon)),
			int64(math.Round(p[2] / epsilon)),
		}
		if idx, ok := seen[k]; ok {
			remap[i] = idx
			continue
		}
		idx := uint32(len(positions) / 3)
		seen[k] = idx
		remap[i] = idx
		positions = append(positions, m.Positions[i*3:i*3+3]...)
	}

	indices := make([]uint32, 0, m.TriangleCount()*3)
	groups := make([]Group, 0, len(m.Groups))
	for _, g := range m.segments() {
		start := len(indices)
		for c := g.Start; c < g.Start+g.Count; c += 3 {
			a, b, cc := remap[m.Index(c)], remap[m.Index(c+1)], remap[m.Index(c+2)]
			if a == b || b == cc || a == cc {
				continue
			}
			indices = append(indices, a, b, cc)
		}
		if g.MaterialIndex >= 0 {
			groups = append(groups, Group{Start: start, Count: len(indices) - start, MaterialIndex: g.MaterialIndex})
		}
	}

	m.Positions = positions
	m.Indices = indices
	m.Normals = nil
	if len(m.Groups) > 0 {
		m.Groups = groups
	}
	return before - m.VertexCount()
}

// segments splits the index buffer into runs in index order: the groups,
// plus a pseudo-group (MaterialIndex -1) for every stretch no group
// covers. Overlapping groups are clipped to the part not yet covered.
func (m *Mesh) segments() []Group {
	corners := m.TriangleCount() * 3
	groups := slices.Clone(m.Groups)
	slices.SortStableFunc(groups, func(a, b Group) int { return a.Start - b.Start })

	out := make([]Group, 0, 2*len(groups)+1)
	at := 0
	for _, g := range groups {
		end := min(g.Start+g.Count, corners)
		if g.Start > at {
			out = append(out, Group{Start: at, Count: g.Start - at, MaterialIndex: -1})
			at = g.Start
		}
		if end > at {
			out = append(out, Group{Start: at, Count: end - at, MaterialIndex: g.MaterialIndex})
			at = end
		}
	}
	if at < corners {
		out = append(out, Group{Start: at, Count: corners - at, MaterialIndex: -1})
	}
	return out
}
