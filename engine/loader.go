package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	csg "github.com/holistic-stack/ob-sub002"
)

// Loader obtains one engine instance and shares it with every caller.
//
// Load is the only suspension point of the conversion core: concurrent
// callers share a single in-flight load instead of starting a second one,
// and once loaded the engine is returned immediately.
type Loader struct {
	name   string
	flight singleflight.Group

	mu     sync.RWMutex
	engine Engine

	loads atomic.Int64 // completed factory invocations
}

// NewLoader creates a loader for the named engine. An empty name selects
// the highest-priority registered engine at load time.
func NewLoader(name string) *Loader {
	return &Loader{name: name}
}

var defaultLoader = NewLoader("")

// DefaultLoader returns the process-wide loader.
func DefaultLoader() *Loader {
	return defaultLoader
}

// Load returns the engine, loading it on first use.
//
// If ctx is cancelled while waiting, Load returns ctx.Err() but the shared
// load keeps running so later callers can still use its result.
func (l *Loader) Load(ctx context.Context) (Engine, error) {
	if e := l.Engine(); e != nil {
		return e, nil
	}

	ch := l.flight.DoChan("load", func() (any, error) {
		// Re-check: a previous flight may have finished between the fast
		// path and joining this one.
		if e := l.Engine(); e != nil {
			return e, nil
		}
		factory, name, ok := lookup(l.name)
		if !ok {
			if l.name == "" {
				return nil, ErrEngineNotAvailable
			}
			return nil, fmt.Errorf("%w: %q", ErrEngineNotAvailable, l.name)
		}
		// Detached from the first caller's cancellation: the load is shared.
		e, err := factory(context.WithoutCancel(ctx))
		if err != nil {
			return nil, fmt.Errorf("engine: load %q: %w", name, err)
		}
		l.loads.Add(1)
		l.mu.Lock()
		l.engine = e
		l.mu.Unlock()
		csg.Logger().Info("native engine loaded", "engine", name)
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(Engine), nil
	}
}

// Engine returns the loaded engine, or nil before Load completes.
func (l *Loader) Engine() Engine {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engine
}

// MustEngine returns the loaded engine or ErrNotLoaded.
func (l *Loader) MustEngine() (Engine, error) {
	if e := l.Engine(); e != nil {
		return e, nil
	}
	return nil, ErrNotLoaded
}

// Loaded reports whether the engine has been loaded.
func (l *Loader) Loaded() bool {
	return l.Engine() != nil
}

// Loads returns how many times a factory actually ran.
func (l *Loader) Loads() int64 {
	return l.loads.Load()
}

// Reset closes the loaded engine, if any, so the next Load starts over.
func (l *Loader) Reset() {
	l.mu.Lock()
	e := l.engine
	l.engine = nil
	l.mu.Unlock()
	if e != nil {
		e.Close()
	}
}
