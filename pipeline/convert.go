package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/mesh"
	"github.com/holistic-stack/ob-sub002/ops"
	"github.com/holistic-stack/ob-sub002/scenetree"
)

// Fingerprint returns the cache key of a subtree converted with opts.
// It covers the structure and every parameter of the subtree plus the
// options that change the resulting mesh.
func Fingerprint(n scenetree.Node, opts csg.ConversionOptions) uint64 {
	var flags byte
	if opts.PreserveMaterials {
		flags |= 1
	}
	if opts.OptimizeResult {
		flags |= 2
	}
	d := xxhash.New()
	_, _ = d.Write([]byte{flags})
	_, _ = d.Write(scenetree.Key(n))
	return d.Sum64()
}

// convert converts one subtree, serving it from the cache when possible.
func (s *Session) convert(ctx context.Context, n scenetree.Node, opts csg.ConversionOptions) (res *ops.Result, err error) {
	if scenetree.IsNil(n) {
		return nil, fmt.Errorf("%w: nil node", scenetree.ErrUnsupportedNode)
	}
	// The deadline is checked between nodes only; native calls run to completion.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "pipeline."+n.Kind(),
		trace.WithAttributes(attribute.String("csg.node", n.Kind())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	caching := opts.EnableCaching && s.cache != nil
	var key uint64
	if caching {
		key = Fingerprint(n, opts)
		if hit, ok := s.cache.Get(key); ok {
			s.metrics.cache.WithLabelValues("hit").Inc()
			span.SetAttributes(attribute.Bool("csg.cache_hit", true))
			s.logger.Debug("subtree cache hit", "kind", n.Kind(), "key", key)
			return hit.Cached(), nil
		}
		s.metrics.cache.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	res, err = s.node(ctx, n, opts)
	if err != nil {
		return nil, err
	}
	res.OperationTime = time.Since(start)
	s.metrics.nodes.WithLabelValues(n.Kind()).Inc()
	if caching {
		s.cache.Set(key, res.Cached())
	}
	return res, nil
}

// node dispatches on the node type. The switch covers every Node
// implementation.
func (s *Session) node(ctx context.Context, n scenetree.Node, opts csg.ConversionOptions) (*ops.Result, error) {
	switch v := n.(type) {
	case *scenetree.Primitive:
		m, err := v.Mesh()
		if err != nil {
			return nil, fmt.Errorf("pipeline: %s: %w", v.Kind(), err)
		}
		return ops.NewResult(m, 0), nil

	case *scenetree.Boolean:
		return s.boolean(ctx, v, opts)

	case *scenetree.Transform:
		m, err := v.Matrix4()
		if err != nil {
			return nil, fmt.Errorf("pipeline: %s: %w", v.Kind(), err)
		}
		child, err := s.child(ctx, v, 0, v.Child, opts)
		if err != nil {
			return nil, err
		}
		res, err := s.ops.Transform(ctx, child.Mesh, m, opts)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %s: %w", v.Kind(), err)
		}
		return res, nil

	case *scenetree.Color:
		child, err := s.child(ctx, v, 0, v.Child, opts)
		if err != nil {
			return nil, err
		}
		// Inner colors win: only triangles without a material take this one.
		return ops.NewResult(child.Mesh.WithDefaultMaterial(v.MaterialName()), 0), nil

	default:
		return nil, fmt.Errorf("%w: %T", scenetree.ErrUnsupportedNode, n)
	}
}

// boolean applies the arity policy: no children is an error, one child
// passes through unchanged, two or more go to the operation service.
func (s *Session) boolean(ctx context.Context, b *scenetree.Boolean, opts csg.ConversionOptions) (*ops.Result, error) {
	if len(b.Children) == 0 {
		if b.Op == scenetree.Union {
			return nil, fmt.Errorf("pipeline: union: %w", ops.ErrNoInputs)
		}
		return nil, fmt.Errorf("pipeline: %s: %w", b.Kind(), ErrTooFewChildren)
	}

	children := make([]*ops.Result, len(b.Children))
	for i, c := range b.Children {
		r, err := s.child(ctx, b, i, c, opts)
		if err != nil {
			return nil, err
		}
		children[i] = r
	}
	if len(children) == 1 {
		return ops.NewResult(children[0].Mesh, 0), nil
	}

	meshes := make([]*mesh.Mesh, len(children))
	for i, r := range children {
		meshes[i] = r.Mesh
	}
	// The operation cache lives and dies with the subtree cache.
	opts.EnableCaching = opts.EnableCaching && s.cache != nil
	var (
		res *ops.Result
		err error
	)
	switch b.Op {
	case scenetree.Union:
		res, err = s.facade.Union(ctx, meshes, opts)
	case scenetree.Difference:
		res, err = s.facade.Subtract(ctx, meshes, opts)
	case scenetree.Intersection:
		res, err = s.facade.Intersect(ctx, meshes, opts)
	default:
		return nil, fmt.Errorf("%w: %s", scenetree.ErrUnsupportedNode, b.Op)
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s: %w", b.Kind(), err)
	}
	return res, nil
}

func (s *Session) child(ctx context.Context, parent scenetree.Node, i int, c scenetree.Node, opts csg.ConversionOptions) (*ops.Result, error) {
	r, err := s.convert(ctx, c, opts)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s child %d: %w", parent.Kind(), i, err)
	}
	return r, nil
}
