// Package resource tracks handles to native engine objects.
//
// Every native handle is wrapped in a Managed record owned by a Manager.
// Owners dispose resources explicitly; the manager guarantees that the
// underlying release runs at most once, keeps allocation accounting, and
// registers a garbage-collector cleanup that releases handles whose owner
// forgot to dispose them.
//
// Accounting invariant, observable at any time through Stats:
//
//	CurrentUsage == TotalAllocated - TotalFreed == ActiveResources
//	PeakUsage    == max historical CurrentUsage
package resource

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	csg "github.com/holistic-stack/ob-sub002"
)

// Releaser is a native handle that can be released.
type Releaser interface {
	Release() error
}

// MemoryStats is a snapshot of a manager's counters.
type MemoryStats struct {
	TotalAllocated  int64
	TotalFreed      int64
	CurrentUsage    int64
	PeakUsage       int64
	ActiveResources int64
}

// record is the manager-side state of one resource. It never references
// the Managed wrapper, so the wrapper can become unreachable while the
// record is still tracked.
type record struct {
	id        uuid.UUID
	kind      string
	handle    Releaser
	createdAt time.Time
	disposed  bool
	cleanup   runtime.Cleanup
	owner     *Manager
}

// Managed wraps a native handle. Resource must not be used after Dispose.
type Managed[T Releaser] struct {
	Resource T
	rec      *record
}

// ID returns the resource identifier used in logs and leak reports.
func (r *Managed[T]) ID() uuid.UUID { return r.rec.id }

// CreatedAt returns when the resource was tracked.
func (r *Managed[T]) CreatedAt() time.Time { return r.rec.createdAt }

// Disposed reports whether the resource has been disposed or reclaimed.
func (r *Managed[T]) Disposed() bool {
	r.rec.owner.mu.Lock()
	defer r.rec.owner.mu.Unlock()
	return r.rec.disposed
}

// Dispose releases the resource through its manager.
func (r *Managed[T]) Dispose() error {
	return r.rec.owner.Dispose(r)
}

func (r *Managed[T]) record() *record { return r.rec }

// Handle is any managed resource, regardless of its handle type.
type Handle interface {
	record() *record
}

// Manager owns the active set of native resources.
//
// Manager is safe for concurrent use. It replaces process-wide state: each
// conversion session creates its own manager.
type Manager struct {
	mu     sync.Mutex
	active map[uuid.UUID]*record
	stats  MemoryStats

	opts         options
	pressureHigh bool
	reclaimed    atomic.Int64
}

// New creates an empty manager.
func New(opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		active: make(map[uuid.UUID]*record),
		opts:   o,
	}
}

// Track wraps handle in a managed resource owned by m.
// Handles without a Release method do not satisfy Releaser and are
// rejected by the compiler. Track fails with ErrNoRelease for a nil handle.
func Track[T Releaser](m *Manager, handle T) (*Managed[T], error) {
	if isNil(handle) {
		return nil, fmt.Errorf("%w: nil %T", ErrNoRelease, handle)
	}
	rec := &record{
		id:        uuid.New(),
		kind:      fmt.Sprintf("%T", handle),
		handle:    handle,
		createdAt: m.opts.now(),
		owner:     m,
	}
	r := &Managed[T]{Resource: handle, rec: rec}

	m.mu.Lock()
	rec.cleanup = runtime.AddCleanup(r, reclaim, cleanupArg{m: m, rec: rec})
	m.active[rec.id] = rec
	m.stats.TotalAllocated++
	m.stats.CurrentUsage++
	m.stats.ActiveResources++
	if m.stats.CurrentUsage > m.stats.PeakUsage {
		m.stats.PeakUsage = m.stats.CurrentUsage
	}
	fire := m.checkPressureLocked()
	stats := m.stats
	m.mu.Unlock()

	if fire {
		m.logger().Warn("native resource pressure",
			"active", stats.ActiveResources, "limit", m.opts.pressureLimit)
		m.opts.onPressure(stats)
	}
	return r, nil
}

// checkPressureLocked reports whether the pressure callback should fire.
// The callback fires once per upward crossing of the limit.
// Must be called with m.mu held.
func (m *Manager) checkPressureLocked() bool {
	if m.opts.pressureLimit <= 0 || m.opts.onPressure == nil {
		return false
	}
	if m.stats.ActiveResources >= int64(m.opts.pressureLimit) {
		if !m.pressureHigh {
			m.pressureHigh = true
			return true
		}
		return false
	}
	m.pressureHigh = false
	return false
}

// removeLocked untracks rec and updates the counters.
// Must be called with m.mu held.
func (m *Manager) removeLocked(rec *record) {
	rec.disposed = true
	rec.cleanup.Stop()
	delete(m.active, rec.id)
	m.stats.TotalFreed++
	m.stats.CurrentUsage--
	m.stats.ActiveResources--
	m.checkPressureLocked()
}

// Dispose releases a resource exactly once.
//
// A second call fails with ErrAlreadyDisposed and does not touch the
// handle. If the handle's release fails, the error is returned but the
// resource is still untracked so it is never released again.
func (m *Manager) Dispose(h Handle) error {
	if h == nil {
		return fmt.Errorf("%w: nil resource", ErrNoRelease)
	}
	rec := h.record()
	if rec.owner != m {
		return ErrForeignResource
	}

	m.mu.Lock()
	if rec.disposed {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s (%s)", ErrAlreadyDisposed, rec.id, rec.kind)
	}
	m.removeLocked(rec)
	m.mu.Unlock()

	if err := safeRelease(rec.handle); err != nil {
		return fmt.Errorf("resource: release %s (%s): %w", rec.id, rec.kind, err)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Active returns the number of tracked resources.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// ClearAll disposes every tracked resource. Individual release failures
// are logged and skipped. It returns the number of resources released
// and the joined release errors.
func (m *Manager) ClearAll() (int, error) {
	m.mu.Lock()
	recs := make([]*record, 0, len(m.active))
	for _, rec := range m.active {
		recs = append(recs, rec)
	}
	for _, rec := range recs {
		m.removeLocked(rec)
	}
	m.mu.Unlock()

	var errs []error
	for _, rec := range recs {
		if err := safeRelease(rec.handle); err != nil {
			m.logger().Warn("release failed during clear",
				"id", rec.id, "kind", rec.kind, "error", err)
			errs = append(errs, fmt.Errorf("resource: release %s: %w", rec.id, err))
		}
	}
	if len(recs) > 0 {
		m.logger().Debug("cleared native resources", "count", len(recs))
	}
	return len(recs), errors.Join(errs...)
}

// Reset disposes every resource and zeroes the counters.
func (m *Manager) Reset() error {
	_, err := m.ClearAll()
	m.mu.Lock()
	m.stats = MemoryStats{}
	m.pressureHigh = false
	m.mu.Unlock()
	return err
}

// Reclaimed returns how many resources the safety net released because
// their owner never disposed them.
func (m *Manager) Reclaimed() int64 {
	return m.reclaimed.Load()
}

func (m *Manager) logger() *slog.Logger {
	if m.opts.logger != nil {
		return m.opts.logger
	}
	return csg.Logger()
}

// cleanupArg is passed to the garbage-collector cleanup. It must not
// reference the Managed wrapper.
type cleanupArg struct {
	m   *Manager
	rec *record
}

// reclaim is the finalization safety net: it runs after a Managed wrapper
// became unreachable. If the owner never disposed it, the handle is
// released here and a warning is logged.
func reclaim(arg cleanupArg) {
	m, rec := arg.m, arg.rec
	m.mu.Lock()
	if rec.disposed {
		m.mu.Unlock()
		return
	}
	// The cleanup is running; there is nothing left to stop.
	rec.cleanup = runtime.Cleanup{}
	m.removeLocked(rec)
	m.mu.Unlock()

	m.reclaimed.Add(1)
	// Already-released handles fail here; that is expected and not reported.
	err := safeRelease(rec.handle)
	m.logger().Warn("native resource was not disposed explicitly",
		"id", rec.id, "kind", rec.kind, "age", m.opts.now().Sub(rec.createdAt))
	if err != nil {
		m.logger().Debug("safety-net release failed", "id", rec.id, "error", err)
	}
}

// safeRelease calls Release, converting a panic into an error.
func safeRelease(h Releaser) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("release panicked: %v", p)
		}
	}()
	return h.Release()
}

// isNil reports whether a handle is a nil interface or a typed nil.
func isNil(h Releaser) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	}
	return false
}
