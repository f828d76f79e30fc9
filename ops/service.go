// Package ops performs boolean operations on meshes through the native
// engine.
//
// Every native object an operation creates is tracked by a resource
// manager and disposed before the operation returns, on success and on
// failure alike. Only meshes leave this package.
package ops

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/convert"
	"github.com/holistic-stack/ob-sub002/engine"
	"github.com/holistic-stack/ob-sub002/geom"
	"github.com/holistic-stack/ob-sub002/material"
	"github.com/holistic-stack/ob-sub002/mesh"
	"github.com/holistic-stack/ob-sub002/resource"
)

// Result is the outcome of a CSG operation. It is immutable once returned.
type Result struct {
	Mesh               *mesh.Mesh
	OperationTime      time.Duration
	VertexCount        int
	TriangleCount      int
	MaterialGroupCount int
}

// NewResult describes m, produced in d.
func NewResult(m *mesh.Mesh, d time.Duration) *Result {
	return &Result{
		Mesh:               m,
		OperationTime:      d,
		VertexCount:        m.VertexCount(),
		TriangleCount:      m.TriangleCount(),
		MaterialGroupCount: len(m.Groups),
	}
}

// Cached returns a copy of r for serving from a cache: the mesh is cloned
// and the operation time is zero.
func (r *Result) Cached() *Result {
	c := *r
	c.Mesh = r.Mesh.Clone()
	c.OperationTime = 0
	return &c
}

// Service runs CSG operations on one engine.
//
// Native calls are serialized; the engine never sees two calls at once.
type Service struct {
	engine    engine.Engine
	resources *resource.Manager
	materials *material.Manager
	metrics   *metrics
	logger    *slog.Logger

	native sync.Mutex
}

// New creates a service. resources tracks every native object the
// service creates.
func New(e engine.Engine, resources *resource.Manager, opts ...Option) *Service {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = csg.Logger()
	}
	return &Service{
		engine:    e,
		resources: resources,
		materials: o.materials,
		metrics:   newMetrics(o.registerer),
		logger:    logger,
	}
}

// Union merges all meshes. A single mesh is cloned without a native round trip.
func (s *Service) Union(ctx context.Context, meshes []*mesh.Mesh, opts csg.ConversionOptions) (*Result, error) {
	return s.boolean(ctx, engine.OpUnion, meshes, opts)
}

// Subtract removes meshes[1:] from meshes[0], left to right.
func (s *Service) Subtract(ctx context.Context, meshes []*mesh.Mesh, opts csg.ConversionOptions) (*Result, error) {
	return s.boolean(ctx, engine.OpSubtract, meshes, opts)
}

// Intersect keeps the volume common to all meshes. A single mesh is
// cloned without a native round trip.
func (s *Service) Intersect(ctx context.Context, meshes []*mesh.Mesh, opts csg.ConversionOptions) (*Result, error) {
	return s.boolean(ctx, engine.OpIntersect, meshes, opts)
}

func (s *Service) boolean(ctx context.Context, op engine.Op, meshes []*mesh.Mesh, opts csg.ConversionOptions) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "ops."+op.String(),
		trace.WithAttributes(
			attribute.String("csg.op", op.String()),
			attribute.Int("csg.inputs", len(meshes)),
		),
	)
	var created int
	start := time.Now()
	defer func() {
		s.finish(span, op.String(), time.Since(start), created, res, err)
	}()

	if len(meshes) == 0 {
		return nil, ErrNoInputs
	}
	for i, m := range meshes {
		if m == nil {
			return nil, fmt.Errorf("%w at %d", ErrNilMesh, i)
		}
	}
	if len(meshes) == 1 {
		if op == engine.OpSubtract {
			return nil, ErrSubtractArity
		}
		return NewResult(meshes[0].Clone(), 0), nil
	}

	s.native.Lock()
	defer s.native.Unlock()

	sc := newScope(s.resources)
	defer func() {
		created = sc.created
		if cerr := sc.close(); cerr != nil {
			s.logger.Warn("disposing native objects failed", "op", op.String(), "error", cerr)
		}
	}()

	ids := s.idFunc(ctx, opts)
	operands := make([]*resource.Managed[engine.Object], len(meshes))
	for i, m := range meshes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o, err := sc.adopt(convert.ToNative(s.engine, m, ids))
		if err != nil {
			return nil, fmt.Errorf("ops: %s operand %d: %w", op, i, err)
		}
		operands[i] = o
	}

	acc := operands[0]
	for i, next := range operands[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := sc.adopt(s.engine.Boolean(acc.Resource, next.Resource, op))
		if err != nil {
			return nil, fmt.Errorf("ops: %s step %d: %w", op, i+1, err)
		}
		// Both operands are spent; only the partial result moves on.
		if err := sc.drop(acc); err != nil {
			return nil, err
		}
		if err := sc.drop(next); err != nil {
			return nil, err
		}
		acc = r
	}

	out, err := convert.ToMesh(acc.Resource, s.materialFunc(opts), convert.OptionsFor(opts))
	if err != nil {
		return nil, fmt.Errorf("ops: %s result: %w", op, err)
	}
	if err := sc.drop(acc); err != nil {
		return nil, err
	}
	return NewResult(out, time.Since(start)), nil
}

// Transform applies m to a mesh with the engine's transform primitive.
func (s *Service) Transform(ctx context.Context, in *mesh.Mesh, m geom.Matrix4, opts csg.ConversionOptions) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "ops.transform")
	var created int
	start := time.Now()
	defer func() {
		s.finish(span, "transform", time.Since(start), created, res, err)
	}()

	if in == nil {
		return nil, ErrNilMesh
	}

	s.native.Lock()
	defer s.native.Unlock()

	sc := newScope(s.resources)
	defer func() {
		created = sc.created
		if cerr := sc.close(); cerr != nil {
			s.logger.Warn("disposing native objects failed", "op", "transform", "error", cerr)
		}
	}()

	src, err := sc.adopt(convert.ToNative(s.engine, in, s.idFunc(ctx, opts)))
	if err != nil {
		return nil, fmt.Errorf("ops: transform operand: %w", err)
	}
	moved, err := sc.adopt(s.engine.Transform(src.Resource, m.ColumnMajor()))
	if err != nil {
		return nil, fmt.Errorf("ops: transform: %w", err)
	}
	if err := sc.drop(src); err != nil {
		return nil, err
	}
	out, err := convert.ToMesh(moved.Resource, s.materialFunc(opts), convert.OptionsFor(opts))
	if err != nil {
		return nil, fmt.Errorf("ops: transform result: %w", err)
	}
	if err := sc.drop(moved); err != nil {
		return nil, err
	}
	return NewResult(out, time.Since(start)), nil
}

func (s *Service) idFunc(ctx context.Context, opts csg.ConversionOptions) convert.IDFunc {
	if !opts.PreserveMaterials || s.materials == nil {
		return nil
	}
	return s.materials.IDs(ctx)
}

func (s *Service) materialFunc(opts csg.ConversionOptions) convert.MaterialFunc {
	if !opts.PreserveMaterials || s.materials == nil {
		return nil
	}
	return s.materials.ExternalID
}

func (s *Service) finish(span trace.Span, op string, d time.Duration, created int, res *Result, err error) {
	defer span.End()
	s.metrics.observe(op, d, created, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("csg operation failed", "op", op, "error", err)
		return
	}
	span.SetAttributes(
		attribute.Int("csg.vertices", res.VertexCount),
		attribute.Int("csg.triangles", res.TriangleCount),
		attribute.Int("csg.native_objects", created),
	)
	s.logger.Debug("csg operation",
		"op", op, "vertices", res.VertexCount, "triangles", res.TriangleCount,
		"native_objects", created, "duration", d)
}
