package geom

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/image/math/f64"
)

// ErrMalformedMatrix is returned when explicit matrix values cannot describe
// an affine 3D transform.
var ErrMalformedMatrix = errors.New("geom: malformed matrix")

// matrixEpsilon is the tolerance used when checking the affine bottom row.
const matrixEpsilon = 1e-9

// Matrix4 represents a 3D affine transformation matrix.
// It uses a 4x4 matrix in row-major order:
//
//	| m0  m1  m2  m3  |
//	| m4  m5  m6  m7  |
//	| m8  m9  m10 m11 |
//	| m12 m13 m14 m15 |
//
// Points are column vectors, so the translation lives in m3, m7 and m11,
// and A.Mul(B) applies B first.
type Matrix4 struct {
	m f64.Mat4
}

// Identity4 returns the identity transformation matrix.
func Identity4() Matrix4 {
	return Matrix4{m: f64.Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// Translate3 creates a translation matrix.
func Translate3(v Vec3) Matrix4 {
	return Matrix4{m: f64.Mat4{
		1, 0, 0, v[0],
		0, 1, 0, v[1],
		0, 0, 1, v[2],
		0, 0, 0, 1,
	}}
}

// Scale3 creates a non-uniform scaling matrix.
func Scale3(v Vec3) Matrix4 {
	return Matrix4{m: f64.Mat4{
		v[0], 0, 0, 0,
		0, v[1], 0, 0,
		0, 0, v[2], 0,
		0, 0, 0, 1,
	}}
}

// RotateX creates a rotation about the X axis (angle in degrees).
func RotateX(deg float64) Matrix4 {
	s, c := sinCosDeg(deg)
	return Matrix4{m: f64.Mat4{
		1, 0, 0, 0,
		0, c, -s, 0,
		0, s, c, 0,
		0, 0, 0, 1,
	}}
}

// RotateY creates a rotation about the Y axis (angle in degrees).
func RotateY(deg float64) Matrix4 {
	s, c := sinCosDeg(deg)
	return Matrix4{m: f64.Mat4{
		c, 0, s, 0,
		0, 1, 0, 0,
		-s, 0, c, 0,
		0, 0, 0, 1,
	}}
}

// RotateZ creates a rotation about the Z axis (angle in degrees).
func RotateZ(deg float64) Matrix4 {
	s, c := sinCosDeg(deg)
	return Matrix4{m: f64.Mat4{
		c, -s, 0, 0,
		s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
}

// RotateEuler composes a 3-axis rotation in Z, then Y, then X order:
// the result is Rz * Ry * Rx, so points are rotated about X first.
func RotateEuler(deg Vec3) Matrix4 {
	return RotateZ(deg[2]).Mul(RotateY(deg[1])).Mul(RotateX(deg[0]))
}

// RotateAxisAngle creates a rotation of deg degrees about an arbitrary axis.
// A zero axis yields the identity.
func RotateAxisAngle(axis Vec3, deg float64) Matrix4 {
	n := axis.Normalize()
	if n.IsZero() {
		return Identity4()
	}
	s, c := sinCosDeg(deg)
	t := 1 - c
	x, y, z := n[0], n[1], n[2]
	return Matrix4{m: f64.Mat4{
		t*x*x + c, t*x*y - s*z, t*x*z + s*y, 0,
		t*x*y + s*z, t*y*y + c, t*y*z - s*x, 0,
		t*x*z - s*y, t*y*z + s*x, t*z*z + c, 0,
		0, 0, 0, 1,
	}}
}

// Mirror creates a reflection across the plane through the origin with the
// given normal. A zero normal yields the identity.
func Mirror(normal Vec3) Matrix4 {
	n := normal.Normalize()
	if n.IsZero() {
		return Identity4()
	}
	x, y, z := n[0], n[1], n[2]
	return Matrix4{m: f64.Mat4{
		1 - 2*x*x, -2 * x * y, -2 * x * z, 0,
		-2 * x * y, 1 - 2*y*y, -2 * y * z, 0,
		-2 * x * z, -2 * y * z, 1 - 2*z*z, 0,
		0, 0, 0, 1,
	}}
}

// FromRowMajor builds a matrix from explicit row-major values.
// It accepts 16 values (4x4) or 12 values (3x4, implied bottom row 0 0 0 1).
// Values must be finite and the bottom row must be affine.
func FromRowMajor(vals []float64) (Matrix4, error) {
	var m f64.Mat4
	switch len(vals) {
	case 16:
		copy(m[:], vals)
	case 12:
		copy(m[:12], vals)
		m[15] = 1
	default:
		return Matrix4{}, fmt.Errorf("%w: want 12 or 16 values, got %d", ErrMalformedMatrix, len(vals))
	}
	for i, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Matrix4{}, fmt.Errorf("%w: value %d is not finite", ErrMalformedMatrix, i)
		}
	}
	if math.Abs(m[12]) > matrixEpsilon || math.Abs(m[13]) > matrixEpsilon ||
		math.Abs(m[14]) > matrixEpsilon || math.Abs(m[15]-1) > matrixEpsilon {
		return Matrix4{}, fmt.Errorf("%w: bottom row %v is not affine", ErrMalformedMatrix, m[12:])
	}
	return Matrix4{m: m}, nil
}

// RowMajor returns the matrix values in row-major order.
func (a Matrix4) RowMajor() [16]float64 {
	return a.m
}

// ColumnMajor returns the matrix values in the column-major layout native
// geometry engines expect.
func (a Matrix4) ColumnMajor() [16]float64 {
	var out [16]float64
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = a.m[r*4+c]
		}
	}
	return out
}

// FromColumnMajor builds a matrix from column-major values.
func FromColumnMajor(cm [16]float64) Matrix4 {
	var m f64.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[r*4+c] = cm[c*4+r]
		}
	}
	return Matrix4{m: m}
}

// Mul multiplies two matrices (a * b). The product applies b first.
func (a Matrix4) Mul(b Matrix4) Matrix4 {
	var out f64.Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += a.m[r*4+k] * b.m[k*4+c]
			}
			out[r*4+c] = sum
		}
	}
	return Matrix4{m: out}
}

// TransformPoint applies the transformation to a point.
func (a Matrix4) TransformPoint(p Vec3) Vec3 {
	m := &a.m
	return Vec3{
		m[0]*p[0] + m[1]*p[1] + m[2]*p[2] + m[3],
		m[4]*p[0] + m[5]*p[1] + m[6]*p[2] + m[7],
		m[8]*p[0] + m[9]*p[1] + m[10]*p[2] + m[11],
	}
}

// TransformDirection applies the linear part of the transformation (no translation).
func (a Matrix4) TransformDirection(p Vec3) Vec3 {
	m := &a.m
	return Vec3{
		m[0]*p[0] + m[1]*p[1] + m[2]*p[2],
		m[4]*p[0] + m[5]*p[1] + m[6]*p[2],
		m[8]*p[0] + m[9]*p[1] + m[10]*p[2],
	}
}

// Determinant3 returns the determinant of the upper-left 3x3 block.
// A negative value means the transform flips handedness.
func (a Matrix4) Determinant3() float64 {
	m := &a.m
	return m[0]*(m[5]*m[10]-m[6]*m[9]) -
		m[1]*(m[4]*m[10]-m[6]*m[8]) +
		m[2]*(m[4]*m[9]-m[5]*m[8])
}

// IsIdentity returns true if the matrix is exactly the identity matrix.
func (a Matrix4) IsIdentity() bool {
	return a.m == Identity4().m
}

func sinCosDeg(deg float64) (float64, float64) {
	// Exact values for right angles keep axis-aligned geometry axis-aligned.
	switch math.Mod(deg, 360) {
	case 0:
		return 0, 1
	case 90, -270:
		return 1, 0
	case 180, -180:
		return 0, -1
	case 270, -90:
		return -1, 0
	}
	return math.Sincos(deg * math.Pi / 180)
}
