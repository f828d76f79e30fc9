// Package convert moves geometry across the native engine boundary.
//
// ToNative turns a mesh into an engine object and ToMesh turns an engine
// object back into a mesh. Neither function keeps ownership of the
// objects it touches: ToNative hands its result to the caller and ToMesh
// never releases its input.
package convert

import (
	"errors"
	"fmt"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/engine"
	"github.com/holistic-stack/ob-sub002/mesh"
)

// Conversion errors.
var (
	// ErrNilMesh is returned when ToNative receives no mesh.
	ErrNilMesh = errors.New("convert: nil mesh")

	// ErrNilObject is returned when ToMesh receives no object.
	ErrNilObject = errors.New("convert: nil native object")
)

// UnassignedID is the run ID of triangles without a material.
const UnassignedID uint32 = 0

// MergeEpsilon is the welding distance used by OptimizeGeometry.
const MergeEpsilon = 1e-6

// IDFunc resolves an external material identifier to a native ID.
type IDFunc func(external string) (uint32, error)

// MaterialFunc resolves a native ID back to an external material identifier.
type MaterialFunc func(id uint32) (string, bool)

// ToMeshOptions controls ToMesh.
type ToMeshOptions struct {
	// PreserveGroups rebuilds material groups from the object's runs.
	PreserveGroups bool
	// OptimizeGeometry welds coincident vertices and drops collapsed triangles.
	OptimizeGeometry bool
	// ComputeNormals fills Mesh.Normals.
	ComputeNormals bool
}

// OptionsFor derives ToMesh options from conversion options.
func OptionsFor(o csg.ConversionOptions) ToMeshOptions {
	return ToMeshOptions{
		PreserveGroups:   o.PreserveMaterials,
		OptimizeGeometry: o.OptimizeResult,
		ComputeNormals:   true,
	}
}

// ToNative builds an engine object from m.
//
// When ids is not nil and m has material groups, each triangle's run is
// tagged with the native ID of its material; triangles outside any group
// get UnassignedID. The caller owns the returned object.
func ToNative(e engine.Engine, m *mesh.Mesh, ids IDFunc) (engine.Object, error) {
	if m == nil {
		return nil, ErrNilMesh
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	gl, err := meshGL(m, ids)
	if err != nil {
		return nil, err
	}
	o, err := e.NewObject(gl)
	if err != nil {
		return nil, fmt.Errorf("convert: native object from %d triangles: %w", m.TriangleCount(), err)
	}
	return o, nil
}

func meshGL(m *mesh.Mesh, ids IDFunc) (engine.MeshGL, error) {
	nt := m.TriangleCount()
	gl := engine.MeshGL{
		NumProp:        3,
		VertProperties: append([]float32(nil), m.Positions...),
		TriVerts:       make([]uint32, nt*3),
	}
	for i := range gl.TriVerts {
		gl.TriVerts[i] = m.Index(i)
	}
	if ids == nil || len(m.Groups) == 0 || nt == 0 {
		return gl, nil
	}

	// Resolve each material once, in group order.
	native := make([]uint32, len(m.Materials))
	resolved := make([]bool, len(m.Materials))
	triID := make([]uint32, nt)
	for _, g := range m.Groups {
		if !resolved[g.MaterialIndex] {
			id, err := ids(m.Materials[g.MaterialIndex])
			if err != nil {
				return engine.MeshGL{}, fmt.Errorf("convert: material %q: %w", m.Materials[g.MaterialIndex], err)
			}
			native[g.MaterialIndex] = id
			resolved[g.MaterialIndex] = true
		}
		for c := g.Start; c < g.Start+g.Count; c += 3 {
			triID[c/3] = native[g.MaterialIndex]
		}
	}

	for t, id := range triID {
		if t == 0 || id != triID[t-1] {
			gl.RunIndex = append(gl.RunIndex, uint32(t*3))
			gl.RunOriginalID = append(gl.RunOriginalID, id)
		}
	}
	gl.RunIndex = append(gl.RunIndex, uint32(nt*3))
	return gl, nil
}

// ToMesh extracts o's geometry into a new mesh. o is not released.
//
// With PreserveGroups, every run whose ID resolves through materials
// becomes a group; runs of the same material share one Materials entry.
func ToMesh(o engine.Object, materials MaterialFunc, opts ToMeshOptions) (*mesh.Mesh, error) {
	if o == nil {
		return nil, ErrNilObject
	}
	gl, err := o.MeshGL()
	if err != nil {
		return nil, fmt.Errorf("convert: extract mesh: %w", err)
	}
	if err := gl.Validate(); err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}

	out := &mesh.Mesh{
		Positions: positions(gl),
		Indices:   append([]uint32{}, gl.TriVerts...),
	}
	if opts.PreserveGroups && materials != nil {
		out.Groups, out.Materials = groups(gl, materials)
	}
	if opts.OptimizeGeometry {
		out.Merge(MergeEpsilon)
	}
	if opts.ComputeNormals {
		out.ComputeNormals()
	}
	return out, nil
}

func positions(gl engine.MeshGL) []float32 {
	if gl.NumProp == 3 {
		return append([]float32(nil), gl.VertProperties...)
	}
	n := gl.NumVert()
	out := make([]float32, 0, n*3)
	for v := range n {
		base := v * int(gl.NumProp)
		out = append(out, gl.VertProperties[base:base+3]...)
	}
	return out
}

func groups(gl engine.MeshGL, materials MaterialFunc) ([]mesh.Group, []string) {
	var out []mesh.Group
	var names []string
	index := make(map[string]int)
	for r, id := range gl.RunOriginalID {
		start, end := int(gl.RunIndex[r]), int(gl.RunIndex[r+1])
		if start == end || id == UnassignedID {
			continue
		}
		name, ok := materials(id)
		if !ok {
			continue
		}
		mi, seen := index[name]
		if !seen {
			mi = len(names)
			index[name] = mi
			names = append(names, name)
		}
		// Adjacent runs of one material become a single group.
		if n := len(out); n > 0 && out[n-1].MaterialIndex == mi && out[n-1].Start+out[n-1].Count == start {
			out[n-1].Count += end - start
			continue
		}
		out = append(out, mesh.Group{Start: start, Count: end - start, MaterialIndex: mi})
	}
	return out, names
}
