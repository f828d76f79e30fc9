package ops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/engine"
	"github.com/holistic-stack/ob-sub002/geom"
	"github.com/holistic-stack/ob-sub002/mesh"
)

func TestOperationsCache(t *testing.T) {
	f := newFixture(t)
	ops := NewOperations(f.svc, 16)
	opts := csg.DefaultConversionOptions()
	in := []*mesh.Mesh{cubeAt(t, 2, geom.Vec3{}), cubeAt(t, 1, geom.V3(1, 0, 0))}

	first, err := ops.Subtract(context.Background(), in, opts)
	require.NoError(t, err)
	assert.Positive(t, first.OperationTime)

	second, err := ops.Subtract(context.Background(), in, opts)
	require.NoError(t, err)
	assert.Zero(t, second.OperationTime, "cache hit reports zero time")
	assert.Equal(t, first.TriangleCount, second.TriangleCount)
	assert.NotSame(t, first.Mesh, second.Mesh)

	m := ops.Metrics()
	assert.Equal(t, int64(2), m.TotalOperations)
	assert.InDelta(t, 0.5, m.CacheHitRate, 1e-9)
	assert.Equal(t, first.OperationTime/2, m.AverageTime)
	assert.Equal(t, int64(0), m.MemoryUsage.ActiveResources)
	// Only the first call reached the engine: two operands and one result.
	assert.Equal(t, int64(3), m.MemoryUsage.TotalAllocated)

	ops.ClearCache()
	third, err := ops.Subtract(context.Background(), in, opts)
	require.NoError(t, err)
	assert.Positive(t, third.OperationTime)
}

func TestOperationsCachingDisabled(t *testing.T) {
	f := newFixture(t)
	ops := NewOperations(f.svc, 16)
	in := []*mesh.Mesh{cubeAt(t, 1, geom.Vec3{}), cubeAt(t, 1, geom.V3(0.5, 0, 0))}
	for range 2 {
		r, err := ops.Union(context.Background(), in, noCache())
		require.NoError(t, err)
		assert.Positive(t, r.OperationTime)
	}
	assert.Zero(t, ops.CacheStats().Len)
	assert.Equal(t, int64(6), f.resources.Stats().TotalAllocated)
}

func TestOperationsErrorsAreNotCached(t *testing.T) {
	f := newFixture(t)
	ops := NewOperations(f.svc, 16)
	_, err := ops.Intersect(context.Background(), nil, csg.DefaultConversionOptions())
	require.ErrorIs(t, err, ErrNoInputs)
	assert.Zero(t, ops.CacheStats().Len)
	assert.Zero(t, ops.Metrics().TotalOperations)
}

func TestFingerprint(t *testing.T) {
	opts := csg.DefaultConversionOptions()
	a := cubeAt(t, 2, geom.Vec3{})
	b := cubeAt(t, 1, geom.V3(1, 0, 0))

	k1, ok := Fingerprint(engine.OpSubtract, []*mesh.Mesh{a, b}, opts)
	require.True(t, ok)
	k2, _ := Fingerprint(engine.OpSubtract, []*mesh.Mesh{a.Clone(), b.Clone()}, opts)
	assert.Equal(t, k1, k2, "equal shapes share a key")

	tests := []struct {
		name   string
		op     engine.Op
		meshes []*mesh.Mesh
		opts   csg.ConversionOptions
	}{
		{"operation", engine.OpUnion, []*mesh.Mesh{a, b}, opts},
		{"order", engine.OpSubtract, []*mesh.Mesh{b, a}, opts},
		{"moved", engine.OpSubtract, []*mesh.Mesh{a, cubeAt(t, 1, geom.V3(1.01, 0, 0))}, opts},
		{"material", engine.OpSubtract, []*mesh.Mesh{a.Clone().WithMaterial("steel"), b}, opts},
		{"options", engine.OpSubtract, []*mesh.Mesh{a, b}, csg.ConversionOptions{OptimizeResult: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, ok := Fingerprint(tt.op, tt.meshes, tt.opts)
			require.True(t, ok)
			assert.NotEqual(t, k1, k)
		})
	}

	_, ok = Fingerprint(engine.OpUnion, []*mesh.Mesh{a, nil}, opts)
	assert.False(t, ok)
}
