package scenetree

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holistic-stack/ob-sub002/geom"
)

func TestKindTags(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{Cube(geom.V3(1, 1, 1), false), "cube"},
		{Sphere(1, 8), "sphere"},
		{Cylinder(1, 1, 0, 8, false), "cylinder"},
		{NewUnion(), "union"},
		{NewDifference(), "difference"},
		{NewIntersection(), "intersection"},
		{NewTranslate(geom.Vec3{}, nil), "translate"},
		{NewRotate(geom.Vec3{}, nil), "rotate"},
		{NewRotateAxis(90, geom.V3(0, 0, 1), nil), "rotate"},
		{NewScale(geom.V3(1, 1, 1), nil), "scale"},
		{NewMirror(geom.V3(1, 0, 0), nil), "mirror"},
		{NewMultMatrix(nil, nil), "multmatrix"},
		{NewColor("red", [4]float64{}, nil), "color"},
	}
	for _, tt := range tests {
		if got := tt.node.Kind(); got != tt.want {
			t.Errorf("Kind() = %q, want %q", got, tt.want)
		}
	}
}

func TestKeyDistinguishesParameters(t *testing.T) {
	cube := Cube(geom.V3(2, 2, 2), true)
	same := Cube(geom.V3(2, 2, 2), true)
	assert.Equal(t, Key(cube), Key(same))

	variants := []Node{
		Cube(geom.V3(2, 2, 2), false),
		Cube(geom.V3(2, 2, 3), true),
		Sphere(2, 0),
		NewTranslate(geom.V3(1, 0, 0), cube),
		NewTranslate(geom.V3(0, 1, 0), cube),
		NewScale(geom.V3(1, 0, 0), cube),
		NewColor("a", [4]float64{}, cube),
		NewColor("b", [4]float64{}, cube),
		NewUnion(cube),
		NewUnion(cube, cube),
		NewDifference(cube, cube),
	}
	seen := map[string]int{string(Key(cube)): -1}
	for i, v := range variants {
		k := string(Key(v))
		if j, ok := seen[k]; ok {
			t.Errorf("variant %d has the same key as %d", i, j)
		}
		seen[k] = i
	}
}

func TestKeyNormalizesNegativeZero(t *testing.T) {
	negZero := math.Copysign(0, -1)
	a := NewTranslate(geom.V3(0, 0, 0), Sphere(1, 8))
	b := NewTranslate(geom.V3(negZero, 0, 0), Sphere(1, 8))
	assert.True(t, bytes.Equal(Key(a), Key(b)))
}

func TestIsNil(t *testing.T) {
	var p *Primitive
	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(p))
	assert.False(t, IsNil(Sphere(1, 8)))
	// Typed nil children encode like absent children.
	assert.Equal(t, Key(NewTranslate(geom.Vec3{}, nil)), Key(NewTranslate(geom.Vec3{}, p)))
}

func TestColorMaterialName(t *testing.T) {
	assert.Equal(t, "steel", NewColor("steel", [4]float64{1, 0, 0, 1}, nil).MaterialName())
	assert.Equal(t, "#ff0000ff", NewColor("", [4]float64{1, 0, 0, 1}, nil).MaterialName())
	assert.Equal(t, "#00ff8000", NewColor("", [4]float64{-1, 2, 0.5, 0}, nil).MaterialName())
}

func TestTransformMatrix(t *testing.T) {
	m, err := NewTranslate(geom.V3(1, 2, 3), nil).Matrix4()
	require.NoError(t, err)
	p := m.TransformPoint(geom.Vec3{})
	assert.InDelta(t, 1, p[0], 1e-12)
	assert.InDelta(t, 3, p[2], 1e-12)

	_, err = NewMultMatrix([]float64{1, 2, 3}, nil).Matrix4()
	assert.ErrorIs(t, err, geom.ErrMalformedMatrix)
}

func TestPrimitiveMesh(t *testing.T) {
	m, err := Cube(geom.V3(1, 2, 3), false).Mesh()
	require.NoError(t, err)
	assert.Equal(t, 12, m.TriangleCount())

	_, err = (&Primitive{Shape: Shape(9)}).Mesh()
	assert.ErrorIs(t, err, ErrUnsupportedNode)
}

func TestWalk(t *testing.T) {
	tree := NewDifference(
		NewTranslate(geom.V3(1, 0, 0), Cube(geom.V3(1, 1, 1), false)),
		NewColor("red", [4]float64{}, Sphere(1, 8)),
		Sphere(2, 8),
	)
	assert.Equal(t, 6, Count(tree))
	assert.Equal(t, 3, Depth(tree))
	assert.Equal(t, 1, Depth(Sphere(1, 8)))
	assert.Equal(t, 0, Count(nil))

	var kinds []string
	Walk(tree, func(n Node, depth int) bool {
		kinds = append(kinds, n.Kind())
		return n.Kind() != "color"
	})
	assert.Equal(t, []string{"difference", "translate", "cube", "color", "sphere"}, kinds)
}

func TestDecode(t *testing.T) {
	doc := `
type: difference
children:
  - type: cube
    size: [2, 2, 2]
    center: true
  - type: translate
    v: [0, 0, 1]
    child: {type: sphere, r: 1, fn: 16}
  - type: rotate
    a: 90
    children:
      - {type: cylinder, h: 2, r: 0.5}
      - {type: cylinder, h: 2, r1: 0.5, r2: 0}
  - type: color
    c: [1, 0, 0]
    child: {type: cube, size: 1}
`
	n, err := Decode([]byte(doc))
	require.NoError(t, err)

	b, ok := n.(*Boolean)
	require.True(t, ok)
	assert.Equal(t, Difference, b.Op)
	require.Len(t, b.Children, 4)

	assert.Equal(t, Cube(geom.V3(2, 2, 2), true), b.Children[0])

	tr := b.Children[1].(*Transform)
	assert.Equal(t, Translate, tr.Op)
	assert.Equal(t, Sphere(1, 16), tr.Child)

	rot := b.Children[2].(*Transform)
	assert.Equal(t, RotateAxis, rot.Op)
	assert.Equal(t, geom.V3(0, 0, 1), rot.Vector)
	assert.Equal(t, 90.0, rot.Angle)
	u, ok := rot.Child.(*Boolean)
	require.True(t, ok, "several transform children become a union")
	assert.Equal(t, Union, u.Op)
	assert.Equal(t, Cylinder(2, 0.5, 0, 0, false), u.Children[1])

	col := b.Children[3].(*Color)
	assert.Equal(t, "#ff0000ff", col.MaterialName())
	assert.Equal(t, Cube(geom.V3(1, 1, 1), false), col.Child)
}

func TestDecodeRotateForms(t *testing.T) {
	n, err := Decode([]byte("{type: rotate, a: [0, 0, 45], child: {type: sphere, r: 1}}"))
	require.NoError(t, err)
	assert.Equal(t, NewRotate(geom.V3(0, 0, 45), Sphere(1, 0)), n)

	n, err = Decode([]byte("{type: rotate, a: 30, v: [1, 0, 0], child: {type: sphere, r: 1}}"))
	require.NoError(t, err)
	assert.Equal(t, NewRotateAxis(30, geom.V3(1, 0, 0), Sphere(1, 0)), n)
}

func TestDecodeMultMatrix(t *testing.T) {
	rows := `
type: multmatrix
m:
  - [1, 0, 0, 5]
  - [0, 1, 0, 0]
  - [0, 0, 1, 0]
child: {type: cube, size: 1}
`
	n, err := Decode([]byte(rows))
	require.NoError(t, err)
	m, err := n.(*Transform).Matrix4()
	require.NoError(t, err)
	assert.InDelta(t, 5, m.TransformPoint(geom.Vec3{})[0], 1e-12)

	_, err = Decode([]byte("{type: multmatrix, m: [1, 2, 3], child: {type: cube}}"))
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown type", "type: polyhedron", ErrUnsupportedNode},
		{"nested unknown", "{type: union, children: [{type: text}]}", ErrUnsupportedNode},
		{"missing type", "size: 1", ErrInvalidNode},
		{"transform without child", "{type: translate, v: [1, 0, 0]}", ErrInvalidNode},
		{"bad vector", "{type: cube, size: [1, 2, 3, 4]}", ErrInvalidNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}

	_, err := Decode([]byte("type: [unterminated"))
	assert.Error(t, err)
}
