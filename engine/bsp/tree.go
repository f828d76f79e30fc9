package bsp

import (
	"github.com/holistic-stack/ob-sub002/geom"
)

// epsilon is the tolerance used to classify points against planes.
const epsilon = 1e-5

// Point classification against a plane.
const (
	coplanar = 0
	front    = 1
	back     = 2
	spanning = 3
)

type plane struct {
	n geom.Vec3
	w float64
}

// newellPlane computes the plane of a polygon with Newell's method, which
// tolerates collinear leading vertices. ok is false for degenerate input.
func newellPlane(verts []geom.Vec3) (plane, bool) {
	var n geom.Vec3
	var centroid geom.Vec3
	for i, cur := range verts {
		next := verts[(i+1)%len(verts)]
		n[0] += (cur[1] - next[1]) * (cur[2] + next[2])
		n[1] += (cur[2] - next[2]) * (cur[0] + next[0])
		n[2] += (cur[0] - next[0]) * (cur[1] + next[1])
		centroid = centroid.Add(cur)
	}
	if n.Length() < epsilon*epsilon {
		return plane{}, false
	}
	n = n.Normalize()
	centroid = centroid.Scale(1 / float64(len(verts)))
	return plane{n: n, w: n.Dot(centroid)}, true
}

func (p *plane) flip() {
	p.n = p.n.Negate()
	p.w = -p.w
}

type polygon struct {
	verts []geom.Vec3
	plane plane
	id    uint32
}

func (p polygon) clone() polygon {
	return polygon{
		verts: append([]geom.Vec3(nil), p.verts...),
		plane: p.plane,
		id:    p.id,
	}
}

func (p *polygon) flip() {
	for i, j := 0, len(p.verts)-1; i < j; i, j = i+1, j-1 {
		p.verts[i], p.verts[j] = p.verts[j], p.verts[i]
	}
	p.plane.flip()
}

// splitPolygon splits poly by the plane, appending the pieces to the
// matching slices. Coplanar polygons go to coplanarFront or coplanarBack
// depending on their orientation.
func (p plane) splitPolygon(poly polygon, coplanarFront, coplanarBack, fronts, backs *[]polygon) {
	polyType := coplanar
	types := make([]int, len(poly.verts))
	for i, v := range poly.verts {
		t := p.n.Dot(v) - p.w
		typ := coplanar
		if t < -epsilon {
			typ = back
		} else if t > epsilon {
			typ = front
		}
		polyType |= typ
		types[i] = typ
	}

	switch polyType {
	case coplanar:
		if p.n.Dot(poly.plane.n) > 0 {
			*coplanarFront = append(*coplanarFront, poly)
		} else {
			*coplanarBack = append(*coplanarBack, poly)
		}
	case front:
		*fronts = append(*fronts, poly)
	case back:
		*backs = append(*backs, poly)
	case spanning:
		var f, b []geom.Vec3
		for i := range poly.verts {
			j := (i + 1) % len(poly.verts)
			ti, tj := types[i], types[j]
			vi, vj := poly.verts[i], poly.verts[j]
			if ti != back {
				f = append(f, vi)
			}
			if ti != front {
				b = append(b, vi)
			}
			if ti|tj == spanning {
				t := (p.w - p.n.Dot(vi)) / p.n.Dot(vj.Sub(vi))
				v := vi.Lerp(vj, t)
				f = append(f, v)
				b = append(b, v)
			}
		}
		if len(f) >= 3 {
			*fronts = append(*fronts, polygon{verts: f, plane: poly.plane, id: poly.id})
		}
		if len(b) >= 3 {
			*backs = append(*backs, polygon{verts: b, plane: poly.plane, id: poly.id})
		}
	}
}

// node is a BSP tree node. The tree is built from polygons; polygons
// coplanar with a node's plane are stored on that node.
type node struct {
	plane *plane
	front *node
	back  *node
	polys []polygon
}

func newNode(polys []polygon) *node {
	n := &node{}
	n.build(polys)
	return n
}

// invert converts solid space to empty space and empty space to solid space.
func (n *node) invert() {
	for i := range n.polys {
		n.polys[i].flip()
	}
	if n.plane != nil {
		n.plane.flip()
	}
	if n.front != nil {
		n.front.invert()
	}
	if n.back != nil {
		n.back.invert()
	}
	n.front, n.back = n.back, n.front
}

// clipPolygons removes the parts of polys that are inside this tree.
func (n *node) clipPolygons(polys []polygon) []polygon {
	if n.plane == nil {
		return append([]polygon(nil), polys...)
	}
	var f, b []polygon
	for _, p := range polys {
		n.plane.splitPolygon(p, &f, &b, &f, &b)
	}
	if n.front != nil {
		f = n.front.clipPolygons(f)
	}
	if n.back != nil {
		b = n.back.clipPolygons(b)
	} else {
		b = nil
	}
	return append(f, b...)
}

// clipTo removes all polygons in this tree that are inside other.
func (n *node) clipTo(other *node) {
	n.polys = other.clipPolygons(n.polys)
	if n.front != nil {
		n.front.clipTo(other)
	}
	if n.back != nil {
		n.back.clipTo(other)
	}
}

// allPolygons returns every polygon in the tree.
func (n *node) allPolygons() []polygon {
	out := append([]polygon(nil), n.polys...)
	if n.front != nil {
		out = append(out, n.front.allPolygons()...)
	}
	if n.back != nil {
		out = append(out, n.back.allPolygons()...)
	}
	return out
}

// build inserts polygons into the tree, splitting them as needed.
func (n *node) build(polys []polygon) {
	if len(polys) == 0 {
		return
	}
	if n.plane == nil {
		p := polys[0].plane
		n.plane = &p
	}
	var f, b []polygon
	for _, p := range polys {
		n.plane.splitPolygon(p, &n.polys, &n.polys, &f, &b)
	}
	if len(f) > 0 {
		if n.front == nil {
			n.front = &node{}
		}
		n.front.build(f)
	}
	if len(b) > 0 {
		if n.back == nil {
			n.back = &node{}
		}
		n.back.build(b)
	}
}

func clonePolygons(polys []polygon) []polygon {
	out := make([]polygon, len(polys))
	for i, p := range polys {
		out[i] = p.clone()
	}
	return out
}

// combine runs a boolean operation on two polygon soups describing closed solids.
func combine(aPolys, bPolys []polygon, op int) []polygon {
	a := newNode(clonePolygons(aPolys))
	b := newNode(clonePolygons(bPolys))
	switch op {
	case opUnion:
		a.clipTo(b)
		b.clipTo(a)
		b.invert()
		b.clipTo(a)
		b.invert()
		a.build(b.allPolygons())
	case opSubtract:
		a.invert()
		a.clipTo(b)
		b.clipTo(a)
		b.invert()
		b.clipTo(a)
		b.invert()
		a.build(b.allPolygons())
		a.invert()
	case opIntersect:
		a.invert()
		b.clipTo(a)
		b.invert()
		a.clipTo(b)
		b.clipTo(a)
		a.build(b.allPolygons())
		a.invert()
	}
	return a.allPolygons()
}

const (
	opUnion = iota
	opSubtract
	opIntersect
)
