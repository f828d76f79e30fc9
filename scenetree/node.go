// Package scenetree defines the solid-model tree consumed by the
// conversion pipeline.
//
// Node is a closed sum type: *Primitive, *Boolean, *Transform and *Color
// are its only implementations, so a type switch over them is exhaustive.
package scenetree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/holistic-stack/ob-sub002/geom"
	"github.com/holistic-stack/ob-sub002/mesh"
)

// Scene-tree errors.
var (
	// ErrUnsupportedNode is returned for a node kind the pipeline cannot convert.
	ErrUnsupportedNode = errors.New("scenetree: unsupported type")

	// ErrInvalidNode is returned for a structurally invalid node.
	ErrInvalidNode = errors.New("scenetree: invalid node")
)

// Node is a scene-tree node.
type Node interface {
	// Kind returns the node's type tag, e.g. "cube" or "difference".
	Kind() string

	// appendKey appends a canonical encoding of the subtree.
	appendKey(b []byte) []byte
}

// Shape is a primitive solid.
type Shape uint8

const (
	ShapeCube Shape = iota
	ShapeSphere
	ShapeCylinder
)

// String returns the shape's type tag.
func (s Shape) String() string {
	switch s {
	case ShapeCube:
		return "cube"
	case ShapeSphere:
		return "sphere"
	case ShapeCylinder:
		return "cylinder"
	default:
		return fmt.Sprintf("Shape(%d)", uint8(s))
	}
}

// Primitive is a leaf solid. Only the fields of its Shape are used:
// Size and Center for cubes, Radius and Segments for spheres, and Height,
// Radius1, Radius2, Segments and Center for cylinders.
type Primitive struct {
	Shape    Shape
	Size     geom.Vec3
	Radius   float64
	Height   float64
	Radius1  float64
	Radius2  float64
	Segments int
	Center   bool
}

// Cube returns a cube primitive.
func Cube(size geom.Vec3, center bool) *Primitive {
	return &Primitive{Shape: ShapeCube, Size: size, Center: center}
}

// Sphere returns a sphere primitive. segments below 3 selects the default.
func Sphere(radius float64, segments int) *Primitive {
	return &Primitive{Shape: ShapeSphere, Radius: radius, Segments: segments}
}

// Cylinder returns a cylinder or cone primitive.
func Cylinder(height, r1, r2 float64, segments int, center bool) *Primitive {
	return &Primitive{Shape: ShapeCylinder, Height: height, Radius1: r1, Radius2: r2, Segments: segments, Center: center}
}

// Kind implements Node.
func (p *Primitive) Kind() string { return p.Shape.String() }

// Mesh tessellates the primitive.
func (p *Primitive) Mesh() (*mesh.Mesh, error) {
	switch p.Shape {
	case ShapeCube:
		return mesh.Cube([3]float32{float32(p.Size[0]), float32(p.Size[1]), float32(p.Size[2])}, p.Center)
	case ShapeSphere:
		return mesh.Sphere(float32(p.Radius), p.Segments)
	case ShapeCylinder:
		return mesh.Cylinder(float32(p.Height), float32(p.Radius1), float32(p.Radius2), p.Segments, p.Center)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNode, p.Shape)
	}
}

func (p *Primitive) appendKey(b []byte) []byte {
	b = append(b, 'P', byte(p.Shape))
	switch p.Shape {
	case ShapeCube:
		b = appendFloats(b, p.Size[:]...)
		b = appendBool(b, p.Center)
	case ShapeSphere:
		b = appendFloats(b, p.Radius)
		b = binary.LittleEndian.AppendUint64(b, uint64(p.Segments))
	case ShapeCylinder:
		b = appendFloats(b, p.Height, p.Radius1, p.Radius2)
		b = binary.LittleEndian.AppendUint64(b, uint64(p.Segments))
		b = appendBool(b, p.Center)
	}
	return b
}

// BooleanOp is a boolean operation over a node's children.
type BooleanOp uint8

const (
	Union BooleanOp = iota
	Difference
	Intersection
)

// String returns the operation's type tag.
func (o BooleanOp) String() string {
	switch o {
	case Union:
		return "union"
	case Difference:
		return "difference"
	case Intersection:
		return "intersection"
	default:
		return fmt.Sprintf("BooleanOp(%d)", uint8(o))
	}
}

// Boolean combines its children in order. Difference removes every
// later child from the first one.
type Boolean struct {
	Op       BooleanOp
	Children []Node
}

// NewUnion returns a union node.
func NewUnion(children ...Node) *Boolean {
	return &Boolean{Op: Union, Children: children}
}

// NewDifference returns a difference node.
func NewDifference(children ...Node) *Boolean {
	return &Boolean{Op: Difference, Children: children}
}

// NewIntersection returns an intersection node.
func NewIntersection(children ...Node) *Boolean {
	return &Boolean{Op: Intersection, Children: children}
}

// Kind implements Node.
func (b *Boolean) Kind() string { return b.Op.String() }

func (b *Boolean) appendKey(out []byte) []byte {
	out = append(out, 'B', byte(b.Op))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(b.Children)))
	for _, c := range b.Children {
		out = appendChild(out, c)
	}
	return out
}

// TransformOp selects how a Transform node moves its child.
type TransformOp uint8

const (
	// Translate moves by Vector.
	Translate TransformOp = iota
	// Rotate applies Euler angles in degrees from Vector, Z then Y then X.
	Rotate
	// RotateAxis rotates Angle degrees about Vector.
	RotateAxis
	// Scale scales by Vector.
	Scale
	// Mirror reflects across the plane through the origin with normal Vector.
	Mirror
	// MultMatrix applies Matrix, 12 or 16 row-major values.
	MultMatrix
)

// String returns the transform's type tag.
func (o TransformOp) String() string {
	switch o {
	case Translate:
		return "translate"
	case Rotate, RotateAxis:
		return "rotate"
	case Scale:
		return "scale"
	case Mirror:
		return "mirror"
	case MultMatrix:
		return "multmatrix"
	default:
		return fmt.Sprintf("TransformOp(%d)", uint8(o))
	}
}

// Transform applies an affine transform to exactly one child.
type Transform struct {
	Op     TransformOp
	Vector geom.Vec3
	Angle  float64
	Matrix []float64
	Child  Node
}

// NewTranslate returns a translation node.
func NewTranslate(v geom.Vec3, child Node) *Transform {
	return &Transform{Op: Translate, Vector: v, Child: child}
}

// NewRotate returns an Euler rotation node, angles in degrees.
func NewRotate(deg geom.Vec3, child Node) *Transform {
	return &Transform{Op: Rotate, Vector: deg, Child: child}
}

// NewRotateAxis returns an axis-angle rotation node.
func NewRotateAxis(deg float64, axis geom.Vec3, child Node) *Transform {
	return &Transform{Op: RotateAxis, Vector: axis, Angle: deg, Child: child}
}

// NewScale returns a scale node.
func NewScale(v geom.Vec3, child Node) *Transform {
	return &Transform{Op: Scale, Vector: v, Child: child}
}

// NewMirror returns a mirror node.
func NewMirror(normal geom.Vec3, child Node) *Transform {
	return &Transform{Op: Mirror, Vector: normal, Child: child}
}

// NewMultMatrix returns an explicit matrix node with row-major values.
func NewMultMatrix(rowMajor []float64, child Node) *Transform {
	return &Transform{Op: MultMatrix, Matrix: rowMajor, Child: child}
}

// Kind implements Node.
func (t *Transform) Kind() string { return t.Op.String() }

// Matrix4 returns the transform as a matrix.
func (t *Transform) Matrix4() (geom.Matrix4, error) {
	switch t.Op {
	case Translate:
		return geom.Translate3(t.Vector), nil
	case Rotate:
		return geom.RotateEuler(t.Vector), nil
	case RotateAxis:
		return geom.RotateAxisAngle(t.Vector, t.Angle), nil
	case Scale:
		return geom.Scale3(t.Vector), nil
	case Mirror:
		return geom.Mirror(t.Vector), nil
	case MultMatrix:
		return geom.FromRowMajor(t.Matrix)
	default:
		return geom.Matrix4{}, fmt.Errorf("%w: %s", ErrUnsupportedNode, t.Op)
	}
}

func (t *Transform) appendKey(b []byte) []byte {
	b = append(b, 'T', byte(t.Op))
	switch t.Op {
	case MultMatrix:
		b = binary.LittleEndian.AppendUint32(b, uint32(len(t.Matrix)))
		b = appendFloats(b, t.Matrix...)
	case RotateAxis:
		b = appendFloats(b, t.Vector[:]...)
		b = appendFloats(b, t.Angle)
	default:
		b = appendFloats(b, t.Vector[:]...)
	}
	return appendChild(b, t.Child)
}

// Color assigns a material to everything below it. Material names the
// material; when it is empty the color itself is used as the name.
type Color struct {
	Material string
	RGBA     [4]float64
	Child    Node
}

// NewColor returns a color node.
func NewColor(material string, rgba [4]float64, child Node) *Color {
	return &Color{Material: material, RGBA: rgba, Child: child}
}

// Kind implements Node.
func (c *Color) Kind() string { return "color" }

// MaterialName returns Material, or the color formatted as #rrggbbaa.
func (c *Color) MaterialName() string {
	if c.Material != "" {
		return c.Material
	}
	var ch [4]uint8
	for i, v := range c.RGBA {
		ch[i] = uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", ch[0], ch[1], ch[2], ch[3])
}

func (c *Color) appendKey(b []byte) []byte {
	b = append(b, 'C')
	b = append(b, c.MaterialName()...)
	b = append(b, 0)
	return appendChild(b, c.Child)
}

// Key returns a canonical encoding of the subtree rooted at n. Equal
// subtrees, including all parameters, have equal keys.
func Key(n Node) []byte {
	return appendChild(nil, n)
}

// IsNil reports whether n is nil or a typed nil node.
func IsNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *Primitive:
		return v == nil
	case *Boolean:
		return v == nil
	case *Transform:
		return v == nil
	case *Color:
		return v == nil
	}
	return false
}

func appendChild(b []byte, n Node) []byte {
	if IsNil(n) {
		return append(b, 'N')
	}
	return n.appendKey(b)
}

func appendFloats(b []byte, vs ...float64) []byte {
	for _, v := range vs {
		if v == 0 {
			v = 0 // -0 and +0 encode alike
		}
		b = binary.LittleEndian.AppendUint64(b, math.Float64bits(v))
	}
	return b
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}
