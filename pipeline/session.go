// Package pipeline converts scene trees into meshes.
//
// A Session owns everything a conversion needs: the engine loader, the
// resource manager that tracks native objects, the material manager, the
// operation service with its result cache, and the subtree cache. Close releases all of it; afterwards no native
// resource created by the session is alive.
//
//	s, err := pipeline.New(ctx)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	res, err := s.Convert(ctx, scenetree.NewDifference(
//		scenetree.Cube(geom.V3(2, 2, 2), true),
//		scenetree.Sphere(1, 32),
//	))
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/engine"
	_ "github.com/holistic-stack/ob-sub002/engine/bsp" // registers the software engine
	"github.com/holistic-stack/ob-sub002/internal/cache"
	"github.com/holistic-stack/ob-sub002/material"
	"github.com/holistic-stack/ob-sub002/ops"
	"github.com/holistic-stack/ob-sub002/resource"
	"github.com/holistic-stack/ob-sub002/scenetree"
)

// Session is a conversion context. It is safe for concurrent use;
// native calls are serialized by the operation service.
type Session struct {
	cfg       csg.Config
	loader    *engine.Loader
	ownLoader bool
	engine    engine.Engine
	resources *resource.Manager
	materials *material.Manager
	ops       *ops.Service
	facade    *ops.Operations
	cache     *cache.Expiring[uint64, *ops.Result]
	metrics   *metrics
	logger    *slog.Logger

	stopLeaks context.CancelFunc
	leaksDone <-chan struct{}
	closed    atomic.Bool
}

// New loads the engine and prepares a session. Loading is the only step
// that may wait; ctx bounds that wait.
func New(ctx context.Context, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := o.logger
	if logger == nil {
		logger = csg.Logger()
	}

	s := &Session{
		cfg:     cfg,
		loader:  o.loader,
		metrics: newMetrics(o.registerer),
		logger:  logger,
	}
	if s.loader == nil {
		s.loader = engine.NewLoader(cfg.Engine.Name)
		s.ownLoader = true
	}
	e, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load engine: %w", err)
	}
	s.engine = e

	s.resources = resource.New(s.resourceOptions(o)...)
	s.materials = material.NewManager(material.NewReserver(s.loader), s.resources,
		append(material.FromConfig(cfg.Materials), material.WithLogger(logger))...)
	if err := s.materials.Initialize(ctx); err != nil {
		s.release()
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	s.ops = ops.New(e, s.resources,
		ops.WithMaterials(s.materials),
		ops.WithRegisterer(o.registerer),
		ops.WithLogger(logger),
	)
	s.facade = ops.NewOperations(s.ops, cfg.Cache.MaxEntries)
	if cfg.Cache.MaxEntries > 0 {
		s.cache = cache.NewExpiring[uint64, *ops.Result](cfg.Cache.MaxEntries, cfg.Cache.TTL, o.now)
	}
	if cfg.Resources.LeakAge > 0 {
		mctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.stopLeaks = cancel
		s.leaksDone = s.resources.StartLeakMonitor(mctx, cfg.Resources.LeakAge, o.onLeaks)
	}

	logger.Info("conversion session ready",
		"engine", e.Name(), "cache_entries", cfg.Cache.MaxEntries, "cache_ttl", cfg.Cache.TTL)
	return s, nil
}

func (s *Session) resourceOptions(o options) []resource.Option {
	ro := []resource.Option{
		resource.WithLogger(s.logger),
		resource.WithClock(o.now),
	}
	if limit := s.cfg.Resources.PressureLimit; limit > 0 {
		fn := o.onPressure
		if fn == nil {
			// The manager logs the crossing; nothing else to do.
			fn = func(resource.MemoryStats) {}
		}
		ro = append(ro, resource.WithPressureLimit(limit, fn))
	}
	if age := s.cfg.Resources.LeakAge; age > 0 {
		ro = append(ro, resource.WithLeakDetection(age))
	}
	return ro
}

// Convert converts a scene tree with the session's conversion options.
func (s *Session) Convert(ctx context.Context, n scenetree.Node) (*ops.Result, error) {
	return s.ConvertWith(ctx, n, s.cfg.Conversion)
}

// ConvertWith converts a scene tree with explicit options.
//
// The first failing node aborts the conversion; the error names the path
// of node kinds and child indexes that led to it. Native objects created
// before the failure are released.
func (s *Session) ConvertWith(ctx context.Context, n scenetree.Node, opts csg.ConversionOptions) (*ops.Result, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res, err := s.convert(ctx, n, opts)
	if err != nil {
		s.metrics.conversions.WithLabelValues("error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("pipeline: conversion exceeded %v: %w", opts.Timeout, err)
		}
		s.logger.Debug("scene conversion failed", "error", err)
		return nil, err
	}
	s.metrics.conversions.WithLabelValues("ok").Inc()
	s.logger.Debug("scene converted",
		"vertices", res.VertexCount, "triangles", res.TriangleCount,
		"groups", res.MaterialGroupCount, "duration", res.OperationTime)
	return res, nil
}

// Close clears the cache, disposes the material reservations and
// releases every native resource still tracked. It is idempotent.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.stopLeaks != nil {
		s.stopLeaks()
		<-s.leaksDone
	}
	s.ClearCache()
	err := s.release()
	s.logger.Info("conversion session closed", "stats", s.resources.Stats())
	return err
}

// release disposes materials and resources and closes an owned engine.
func (s *Session) release() error {
	var errs []error
	if s.materials != nil {
		if err := s.materials.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.resources != nil {
		if _, err := s.resources.ClearAll(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.ownLoader {
		s.loader.Reset()
	}
	return errors.Join(errs...)
}

// Stats returns the native resource counters.
func (s *Session) Stats() resource.MemoryStats {
	return s.resources.Stats()
}

// CacheStats returns subtree cache statistics; zero when caching is off.
func (s *Session) CacheStats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{}
	}
	return s.cache.Stats()
}

// OperationMetrics returns the running metrics of the boolean operations
// run by the session.
func (s *Session) OperationMetrics() ops.PerformanceMetrics {
	return s.facade.Metrics()
}

// ClearCache drops every cached subtree and operation result.
func (s *Session) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
	if s.facade != nil {
		s.facade.ClearCache()
	}
}

// Config returns the session configuration.
func (s *Session) Config() csg.Config { return s.cfg }

// Engine returns the loaded engine.
func (s *Session) Engine() engine.Engine { return s.engine }

// Resources returns the session's resource manager.
func (s *Session) Resources() *resource.Manager { return s.resources }

// Materials returns the session's material manager.
func (s *Session) Materials() *material.Manager { return s.materials }
