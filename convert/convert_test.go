package convert

import (
	"errors"
	"fmt"
	"testing"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/engine"
	"github.com/holistic-stack/ob-sub002/engine/bsp"
	"github.com/holistic-stack/ob-sub002/geom"
	"github.com/holistic-stack/ob-sub002/mesh"
)

// table is a two-way material table for tests.
type table struct {
	ids   map[string]uint32
	names map[uint32]string
}

func newTable() *table {
	return &table{ids: map[string]uint32{}, names: map[uint32]string{}}
}

func (t *table) id(ext string) (uint32, error) {
	if id, ok := t.ids[ext]; ok {
		return id, nil
	}
	id := uint32(100 + len(t.ids))
	t.ids[ext] = id
	t.names[id] = ext
	return id, nil
}

func (t *table) name(id uint32) (string, bool) {
	n, ok := t.names[id]
	return n, ok
}

func cube(t *testing.T, size float32) *mesh.Mesh {
	t.Helper()
	m, err := mesh.Cube([3]float32{size, size, size}, true)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRoundTripCounts(t *testing.T) {
	e := bsp.New()
	in := cube(t, 2)
	o, err := ToNative(e, in, nil)
	if err != nil {
		t.Fatalf("ToNative() error = %v", err)
	}
	defer o.Release()

	out, err := ToMesh(o, nil, ToMeshOptions{})
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if out.VertexCount() != in.VertexCount() {
		t.Errorf("VertexCount() = %d, want %d", out.VertexCount(), in.VertexCount())
	}
	if out.TriangleCount() != in.TriangleCount() {
		t.Errorf("TriangleCount() = %d, want %d", out.TriangleCount(), in.TriangleCount())
	}
	if err := out.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if out.Normals != nil {
		t.Error("Normals set without ComputeNormals")
	}
	if e.Live() != 1 {
		t.Errorf("Live() = %d, want 1: ToMesh must not release its input", e.Live())
	}
}

func TestToNativeRuns(t *testing.T) {
	m := cube(t, 1)
	// Triangles 0-3 steel, 4-7 unassigned, 8-11 steel again.
	m.Materials = []string{"steel"}
	m.Groups = []mesh.Group{
		{Start: 0, Count: 12, MaterialIndex: 0},
		{Start: 24, Count: 12, MaterialIndex: 0},
	}
	tbl := newTable()
	gl, err := meshGL(m, tbl.id)
	if err != nil {
		t.Fatal(err)
	}
	wantIndex := []uint32{0, 12, 24, 36}
	wantIDs := []uint32{100, UnassignedID, 100}
	if fmt.Sprint(gl.RunIndex) != fmt.Sprint(wantIndex) {
		t.Errorf("RunIndex = %v, want %v", gl.RunIndex, wantIndex)
	}
	if fmt.Sprint(gl.RunOriginalID) != fmt.Sprint(wantIDs) {
		t.Errorf("RunOriginalID = %v, want %v", gl.RunOriginalID, wantIDs)
	}
	if err := gl.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestToNativeMaterialError(t *testing.T) {
	m := cube(t, 1).WithMaterial("steel")
	boom := errors.New("exhausted")
	_, err := ToNative(bsp.New(), m, func(string) (uint32, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Errorf("ToNative() error = %v, want wrapped %v", err, boom)
	}
}

func TestToNativeRejectsInvalid(t *testing.T) {
	e := bsp.New()
	if _, err := ToNative(e, nil, nil); !errors.Is(err, ErrNilMesh) {
		t.Errorf("ToNative(nil) = %v, want ErrNilMesh", err)
	}
	bad := &mesh.Mesh{Positions: []float32{0, 0, 0}, Indices: []uint32{0, 1, 2}}
	if _, err := ToNative(e, bad, nil); !errors.Is(err, mesh.ErrInvalidIndices) {
		t.Errorf("ToNative(bad indices) = %v, want ErrInvalidIndices", err)
	}
	if e.Live() != 0 {
		t.Errorf("Live() = %d after failed conversions", e.Live())
	}
}

func TestGroupsSurviveBoolean(t *testing.T) {
	e := bsp.New()
	tbl := newTable()
	a, err := ToNative(e, cube(t, 2).WithMaterial("steel"), tbl.id)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Release()
	small := cube(t, 1)
	small.WithMaterial("glass")
	bBase, err := ToNative(e, small, tbl.id)
	if err != nil {
		t.Fatal(err)
	}
	defer bBase.Release()
	b, err := e.Transform(bBase, geom.Translate3(geom.V3(1, 0, 0)).ColumnMajor())
	if err != nil {
		t.Fatal(err)
	}
	defer b.Release()

	r, err := e.Boolean(a, b, engine.OpSubtract)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	out, err := ToMesh(r, tbl.name, ToMeshOptions{PreserveGroups: true, ComputeNormals: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Materials) != 2 {
		t.Fatalf("Materials = %v, want steel and glass", out.Materials)
	}
	if err := out.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	covered := 0
	for _, g := range out.Groups {
		covered += g.Count
	}
	if covered != out.TriangleCount()*3 {
		t.Errorf("groups cover %d indices, want %d", covered, out.TriangleCount()*3)
	}
	if len(out.Normals) != len(out.Positions) {
		t.Errorf("len(Normals) = %d, want %d", len(out.Normals), len(out.Positions))
	}
}

func TestToMeshReleased(t *testing.T) {
	e := bsp.New()
	o, err := ToNative(e, cube(t, 1), nil)
	if err != nil {
		t.Fatal(err)
	}
	_ = o.Release()
	if _, err := ToMesh(o, nil, ToMeshOptions{}); !errors.Is(err, engine.ErrReleased) {
		t.Errorf("ToMesh(released) = %v, want ErrReleased", err)
	}
	if _, err := ToMesh(nil, nil, ToMeshOptions{}); !errors.Is(err, ErrNilObject) {
		t.Errorf("ToMesh(nil) = %v, want ErrNilObject", err)
	}
}

func TestPositionsWithExtraProperties(t *testing.T) {
	gl := engine.MeshGL{
		NumProp:        5,
		VertProperties: []float32{1, 2, 3, 9, 9, 4, 5, 6, 9, 9},
	}
	got := positions(gl)
	want := []float32{1, 2, 3, 4, 5, 6}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("positions() = %v, want %v", got, want)
	}
}

func TestOptionsFor(t *testing.T) {
	o := OptionsFor(csg.ConversionOptions{PreserveMaterials: true, OptimizeResult: true})
	want := ToMeshOptions{PreserveGroups: true, OptimizeGeometry: true, ComputeNormals: true}
	if o != want {
		t.Errorf("OptionsFor() = %+v, want %+v", o, want)
	}
}
