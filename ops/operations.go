package ops

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/engine"
	"github.com/holistic-stack/ob-sub002/internal/cache"
	"github.com/holistic-stack/ob-sub002/mesh"
	"github.com/holistic-stack/ob-sub002/resource"
)

// BoundsStep is the grid, in model units, that operand bounds are snapped
// to before fingerprinting. Scenes are modeled in millimeters, so this is
// a micrometer grid.
const BoundsStep = 1e-3

// PerformanceMetrics summarizes the work done by an Operations facade.
type PerformanceMetrics struct {
	TotalOperations int64
	AverageTime     time.Duration
	CacheHitRate    float64
	MemoryUsage     resource.MemoryStats
}

// Operations is a Service with a bounded result cache and running metrics.
//
// Results are keyed by a fingerprint of the operation and its operands'
// shapes: vertex and index counts, material groups, and bounds snapped to
// BoundsStep. Two different meshes with equal fingerprints share a result,
// so the cache suits repeated evaluation of the same model.
type Operations struct {
	svc       *Service
	resources *resource.Manager
	results   *cache.ShardedCache[uint64, *Result]

	total     atomic.Int64
	totalTime atomic.Int64
}

// NewOperations wraps svc. maxEntries bounds the result cache.
func NewOperations(svc *Service, maxEntries int) *Operations {
	return &Operations{
		svc:       svc,
		resources: svc.resources,
		results:   cache.NewSharded[uint64, *Result](cache.CapacityFor(maxEntries), cache.Uint64Hasher),
	}
}

// Union is Service.Union with caching.
func (o *Operations) Union(ctx context.Context, meshes []*mesh.Mesh, opts csg.ConversionOptions) (*Result, error) {
	return o.run(ctx, engine.OpUnion, meshes, opts, o.svc.Union)
}

// Subtract is Service.Subtract with caching.
func (o *Operations) Subtract(ctx context.Context, meshes []*mesh.Mesh, opts csg.ConversionOptions) (*Result, error) {
	return o.run(ctx, engine.OpSubtract, meshes, opts, o.svc.Subtract)
}

// Intersect is Service.Intersect with caching.
func (o *Operations) Intersect(ctx context.Context, meshes []*mesh.Mesh, opts csg.ConversionOptions) (*Result, error) {
	return o.run(ctx, engine.OpIntersect, meshes, opts, o.svc.Intersect)
}

type opFunc func(context.Context, []*mesh.Mesh, csg.ConversionOptions) (*Result, error)

func (o *Operations) run(ctx context.Context, op engine.Op, meshes []*mesh.Mesh, opts csg.ConversionOptions, fn opFunc) (*Result, error) {
	if !opts.EnableCaching {
		return o.measure(ctx, meshes, opts, fn)
	}
	key, ok := Fingerprint(op, meshes, opts)
	if !ok {
		return o.measure(ctx, meshes, opts, fn)
	}
	if r, hit := o.results.Get(key); hit {
		o.total.Add(1)
		o.svc.logger.Debug("csg result cache hit", "op", op.String(), "key", key)
		return r.Cached(), nil
	}
	r, err := o.measure(ctx, meshes, opts, fn)
	if err != nil {
		return nil, err
	}
	o.results.Set(key, r.Cached())
	return r, nil
}

func (o *Operations) measure(ctx context.Context, meshes []*mesh.Mesh, opts csg.ConversionOptions, fn opFunc) (*Result, error) {
	r, err := fn(ctx, meshes, opts)
	if err != nil {
		return nil, err
	}
	o.total.Add(1)
	o.totalTime.Add(int64(r.OperationTime))
	return r, nil
}

// Metrics returns the running performance metrics.
func (o *Operations) Metrics() PerformanceMetrics {
	total := o.total.Load()
	var avg time.Duration
	if total > 0 {
		avg = time.Duration(o.totalTime.Load() / total)
	}
	return PerformanceMetrics{
		TotalOperations: total,
		AverageTime:     avg,
		CacheHitRate:    o.results.Stats().HitRate,
		MemoryUsage:     o.resources.Stats(),
	}
}

// CacheStats returns the result cache statistics.
func (o *Operations) CacheStats() cache.Stats {
	return o.results.Stats()
}

// ClearCache drops every cached result.
func (o *Operations) ClearCache() {
	o.results.Clear()
}

// Fingerprint derives the cache key of an operation. ok is false when an
// operand is nil.
func Fingerprint(op engine.Op, meshes []*mesh.Mesh, opts csg.ConversionOptions) (uint64, bool) {
	d := xxhash.New()
	var buf [8]byte
	putInt := func(v int64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = d.Write(buf[:])
	}
	putInt(int64(op))
	putInt(int64(len(meshes)))
	putInt(flags(opts))
	for _, m := range meshes {
		if m == nil {
			return 0, false
		}
		putInt(int64(m.VertexCount()))
		putInt(int64(len(m.Indices)))
		for _, q := range m.Bounds().Quantize(BoundsStep) {
			putInt(q)
		}
		putInt(int64(len(m.Groups)))
		for _, g := range m.Groups {
			if g.MaterialIndex < 0 || g.MaterialIndex >= len(m.Materials) {
				return 0, false
			}
			putInt(int64(g.Start))
			putInt(int64(g.Count))
			_, _ = d.WriteString(m.Materials[g.MaterialIndex])
			_, _ = d.Write([]byte{0})
		}
	}
	return d.Sum64(), true
}

func flags(opts csg.ConversionOptions) int64 {
	var f int64
	if opts.PreserveMaterials {
		f |= 1
	}
	if opts.OptimizeResult {
		f |= 2
	}
	return f
}
