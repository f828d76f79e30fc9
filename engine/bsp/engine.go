// Package bsp is a pure Go software implementation of the native engine
// boundary. It performs boolean operations with binary space partitioning
// trees over convex polygons and needs no native library, which makes it
// the fallback engine and the engine used by tests.
//
// Importing the package registers it as engine.EngineBSP.
package bsp

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/holistic-stack/ob-sub002/engine"
	"github.com/holistic-stack/ob-sub002/geom"
)

// init registers the software engine on package import.
func init() {
	engine.Register(engine.EngineBSP, func(context.Context) (engine.Engine, error) {
		return New(), nil
	})
}

// Engine is the BSP software engine. It is safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	live   map[*solid]struct{}
	nextID uint32
	closed bool
}

// New creates a software engine. Reserved material IDs start at 1;
// ID 0 tags geometry created without material runs.
func New() *Engine {
	return &Engine{
		live:   make(map[*solid]struct{}),
		nextID: 1,
	}
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return engine.EngineBSP
}

// Live returns the number of objects created and not yet released.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// Close releases every live object.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for s := range e.live {
		s.released = true
		s.polys = nil
	}
	e.live = make(map[*solid]struct{})
	e.closed = true
}

// NewObject constructs a solid from mesh data. Degenerate triangles are dropped.
func (e *Engine) NewObject(m engine.MeshGL) (engine.Object, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	stride := int(m.NumProp)
	pos := func(v uint32) geom.Vec3 {
		p := m.VertProperties[int(v)*stride:]
		return geom.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
	}

	polys := make([]polygon, 0, m.NumTri())
	run := 0
	for t := 0; t < m.NumTri(); t++ {
		corner := uint32(t * 3)
		for len(m.RunIndex) > 0 && run+1 < len(m.RunIndex)-1 && corner >= m.RunIndex[run+1] {
			run++
		}
		var id uint32
		if len(m.RunOriginalID) > 0 {
			id = m.RunOriginalID[run]
		}
		verts := []geom.Vec3{pos(m.TriVerts[corner]), pos(m.TriVerts[corner+1]), pos(m.TriVerts[corner+2])}
		pl, ok := newellPlane(verts)
		if !ok {
			continue
		}
		polys = append(polys, polygon{verts: verts, plane: pl, id: id})
	}
	return e.track(polys)
}

// Boolean combines two solids into a new one.
func (e *Engine) Boolean(a, b engine.Object, op engine.Op) (engine.Object, error) {
	sa, err := e.own(a)
	if err != nil {
		return nil, err
	}
	sb, err := e.own(b)
	if err != nil {
		return nil, err
	}
	var mode int
	switch op {
	case engine.OpUnion:
		mode = opUnion
	case engine.OpSubtract:
		mode = opSubtract
	case engine.OpIntersect:
		mode = opIntersect
	default:
		return nil, fmt.Errorf("bsp: unsupported boolean %v", op)
	}
	return e.track(combine(sa.polys, sb.polys, mode))
}

// Transform returns a transformed copy of o. Handedness-flipping
// transforms reverse the winding so normals keep pointing outward.
func (e *Engine) Transform(o engine.Object, columnMajor [16]float64) (engine.Object, error) {
	s, err := e.own(o)
	if err != nil {
		return nil, err
	}
	for i, v := range columnMajor {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("bsp: transform value %d is not finite", i)
		}
	}
	m := geom.FromColumnMajor(columnMajor)
	flip := m.Determinant3() < 0

	polys := make([]polygon, 0, len(s.polys))
	for _, p := range s.polys {
		verts := make([]geom.Vec3, len(p.verts))
		for i, v := range p.verts {
			verts[i] = m.TransformPoint(v)
		}
		if flip {
			for i, j := 0, len(verts)-1; i < j; i, j = i+1, j-1 {
				verts[i], verts[j] = verts[j], verts[i]
			}
		}
		pl, ok := newellPlane(verts)
		if !ok {
			// Collapsed by a zero scale.
			continue
		}
		polys = append(polys, polygon{verts: verts, plane: pl, id: p.id})
	}
	return e.track(polys)
}

// ReserveIDs reserves n consecutive material IDs and returns the first.
func (e *Engine) ReserveIDs(n uint32) (uint32, error) {
	if n == 0 {
		return 0, fmt.Errorf("bsp: cannot reserve 0 IDs")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if uint64(e.nextID)+uint64(n)-1 > uint64(engine.MaxReservedID) {
		return 0, fmt.Errorf("bsp: %d IDs from %d: %w", n, e.nextID, engine.ErrIDsExhausted)
	}
	start := e.nextID
	e.nextID += n
	return start, nil
}

func (e *Engine) track(polys []polygon) (engine.Object, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, fmt.Errorf("bsp: engine closed")
	}
	s := &solid{eng: e, polys: polys}
	e.live[s] = struct{}{}
	return s, nil
}

// own checks that o is a live solid created by this engine.
func (e *Engine) own(o engine.Object) (*solid, error) {
	s, ok := o.(*solid)
	if !ok || s == nil || s.eng != e {
		return nil, engine.ErrForeignObject
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if s.released {
		return nil, engine.ErrReleased
	}
	return s, nil
}

// solid is the engine.Object implementation.
type solid struct {
	eng      *Engine
	polys    []polygon
	released bool

	meshOnce sync.Once
	mesh     engine.MeshGL
}

// Release frees the solid. A second call fails with engine.ErrReleased.
func (s *solid) Release() error {
	s.eng.mu.Lock()
	defer s.eng.mu.Unlock()
	if s.released {
		return engine.ErrReleased
	}
	s.released = true
	s.polys = nil
	delete(s.eng.live, s)
	return nil
}

func (s *solid) isReleased() bool {
	s.eng.mu.Lock()
	defer s.eng.mu.Unlock()
	return s.released
}

// MeshGL triangulates the solid, welding identical vertices and grouping
// triangles into runs by original ID.
func (s *solid) MeshGL() (engine.MeshGL, error) {
	if s.isReleased() {
		return engine.MeshGL{}, engine.ErrReleased
	}
	s.meshOnce.Do(func() { s.mesh = buildMeshGL(s.polys) })
	return s.mesh, nil
}

// NumVert returns the vertex count, or 0 after release.
func (s *solid) NumVert() int {
	m, err := s.MeshGL()
	if err != nil {
		return 0
	}
	return m.NumVert()
}

// NumTri returns the triangle count, or 0 after release.
func (s *solid) NumTri() int {
	m, err := s.MeshGL()
	if err != nil {
		return 0
	}
	return m.NumTri()
}

func buildMeshGL(polys []polygon) engine.MeshGL {
	sorted := append([]polygon(nil), polys...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	out := engine.MeshGL{NumProp: 3}
	index := make(map[[3]float32]uint32)
	vertex := func(v geom.Vec3) uint32 {
		k := [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
		if i, ok := index[k]; ok {
			return i
		}
		i := uint32(len(out.VertProperties) / 3)
		index[k] = i
		out.VertProperties = append(out.VertProperties, k[0], k[1], k[2])
		return i
	}

	for i, p := range sorted {
		if i == 0 || p.id != sorted[i-1].id {
			out.RunIndex = append(out.RunIndex, uint32(len(out.TriVerts)))
			out.RunOriginalID = append(out.RunOriginalID, p.id)
		}
		first := vertex(p.verts[0])
		for k := 1; k+1 < len(p.verts); k++ {
			b, c := vertex(p.verts[k]), vertex(p.verts[k+1])
			if first == b || b == c || first == c {
				continue
			}
			out.TriVerts = append(out.TriVerts, first, b, c)
		}
	}
	if len(out.RunIndex) > 0 {
		out.RunIndex = append(out.RunIndex, uint32(len(out.TriVerts)))
	}
	return out
}
