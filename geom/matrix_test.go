package geom

import (
	"errors"
	"math"
	"testing"
)

const testEps = 1e-9

func vecNear(a, b Vec3) bool {
	return math.Abs(a[0]-b[0]) < testEps && math.Abs(a[1]-b[1]) < testEps && math.Abs(a[2]-b[2]) < testEps
}

func TestTransformPoint(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix4
		in   Vec3
		want Vec3
	}{
		{"identity", Identity4(), V3(1, 2, 3), V3(1, 2, 3)},
		{"translate", Translate3(V3(1, -2, 3)), V3(1, 1, 1), V3(2, -1, 4)},
		{"scale", Scale3(V3(2, 1, 0.5)), V3(1, 1, 4), V3(2, 1, 2)},
		{"rotate x 90", RotateX(90), V3(0, 1, 0), V3(0, 0, 1)},
		{"rotate y 90", RotateY(90), V3(0, 0, 1), V3(1, 0, 0)},
		{"rotate z 90", RotateZ(90), V3(1, 0, 0), V3(0, 1, 0)},
		{"rotate z -90", RotateZ(-90), V3(1, 0, 0), V3(0, -1, 0)},
		{"axis angle z", RotateAxisAngle(V3(0, 0, 2), 90), V3(1, 0, 0), V3(0, 1, 0)},
		{"axis angle zero axis", RotateAxisAngle(Vec3{}, 90), V3(1, 0, 0), V3(1, 0, 0)},
		{"mirror x", Mirror(V3(1, 0, 0)), V3(3, 2, 1), V3(-3, 2, 1)},
		{"translate then scale", Scale3(V3(2, 2, 2)).Mul(Translate3(V3(1, 0, 0))), V3(0, 0, 0), V3(2, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.TransformPoint(tt.in)
			if !vecNear(got, tt.want) {
				t.Errorf("TransformPoint(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRotateEulerOrder(t *testing.T) {
	// X is applied first: rotating (0,1,0) 90 about X gives (0,0,1),
	// then 90 about Z leaves it unchanged.
	got := RotateEuler(V3(90, 0, 90)).TransformPoint(V3(0, 1, 0))
	if !vecNear(got, V3(0, 0, 1)) {
		t.Errorf("RotateEuler([90,0,90]) * (0,1,0) = %v, want (0,0,1)", got)
	}
	m := RotateEuler(V3(30, 45, 60))
	want := RotateZ(60).Mul(RotateY(45)).Mul(RotateX(30))
	p := V3(1, 2, 3)
	if !vecNear(m.TransformPoint(p), want.TransformPoint(p)) {
		t.Errorf("RotateEuler([30,45,60]) != Rz*Ry*Rx")
	}
	// Applying Z first would have produced (-1,0,0).
	wrong := RotateX(90).Mul(RotateZ(90)).TransformPoint(V3(0, 1, 0))
	if vecNear(got, wrong) {
		t.Error("RotateEuler should not match X*Z composition")
	}
}

func TestColumnMajorRoundTrip(t *testing.T) {
	m := Translate3(V3(4, 5, 6)).Mul(RotateY(30))
	cm := m.ColumnMajor()
	if cm[12] != 4 || cm[13] != 5 || cm[14] != 6 {
		t.Errorf("ColumnMajor translation = %v, want [4 5 6]", cm[12:15])
	}
	if back := FromColumnMajor(cm); back.RowMajor() != m.RowMajor() {
		t.Errorf("FromColumnMajor(ColumnMajor()) = %v, want %v", back.RowMajor(), m.RowMajor())
	}
}

func TestFromRowMajor(t *testing.T) {
	m, err := FromRowMajor([]float64{1, 0, 0, 5, 0, 1, 0, 0, 0, 0, 1, 0})
	if err != nil {
		t.Fatalf("FromRowMajor(3x4) error = %v", err)
	}
	if got := m.TransformPoint(V3(0, 0, 0)); !vecNear(got, V3(5, 0, 0)) {
		t.Errorf("3x4 translation = %v, want (5,0,0)", got)
	}

	bad := [][]float64{
		{1, 2, 3},
		{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 1, 0, 0, 1},
		{math.NaN(), 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0},
		{math.Inf(1), 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0},
	}
	for _, vals := range bad {
		if _, err := FromRowMajor(vals); !errors.Is(err, ErrMalformedMatrix) {
			t.Errorf("FromRowMajor(%v) error = %v, want ErrMalformedMatrix", vals, err)
		}
	}
}

func TestDeterminant3(t *testing.T) {
	if d := Mirror(V3(0, 1, 0)).Determinant3(); d >= 0 {
		t.Errorf("Mirror determinant = %v, want negative", d)
	}
	if d := Scale3(V3(2, 3, 4)).Determinant3(); math.Abs(d-24) > testEps {
		t.Errorf("Scale3 determinant = %v, want 24", d)
	}
	if !Identity4().IsIdentity() {
		t.Error("Identity4().IsIdentity() = false")
	}
}

func TestBox3(t *testing.T) {
	b := EmptyBox3()
	if !b.IsEmpty() {
		t.Fatal("EmptyBox3() should be empty")
	}
	if b.Quantize(0.001) != [6]int64{} {
		t.Error("empty box should quantize to zeros")
	}
	b = b.ExpandByPoint(V3(-1, -1, -1)).ExpandByPoint(V3(1, 2, 3))
	if got := b.Size(); !vecNear(got, V3(2, 3, 4)) {
		t.Errorf("Size() = %v, want (2,3,4)", got)
	}
	if got := b.Center(); !vecNear(got, V3(0, 0.5, 1)) {
		t.Errorf("Center() = %v, want (0,0.5,1)", got)
	}
	if q := b.Quantize(0.001); q != [6]int64{-1000, -1000, -1000, 1000, 2000, 3000} {
		t.Errorf("Quantize(mm) = %v", q)
	}
}
