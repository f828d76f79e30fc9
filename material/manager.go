package material

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/internal/cache"
	"github.com/holistic-stack/ob-sub002/resource"
)

// reservation is the managed handle of a reserved range. IDs are never
// returned to the engine; releasing only ends the reservation's lifetime.
type reservation struct {
	rng      Range
	released atomic.Bool
}

var errReservationReleased = errors.New("material: reservation already released")

func (r *reservation) Release() error {
	if !r.released.CompareAndSwap(false, true) {
		return errReservationReleased
	}
	return nil
}

// Manager owns the material mapping of a conversion session.
//
// MaterialID looks up or lazily assigns the native ID of an external
// material. Hot lookups are served from a bounded LRU in front of the
// mapping; the mapping stays the source of truth.
//
// Manager is safe for concurrent use.
type Manager struct {
	reserver  *Reserver
	resources *resource.Manager
	opts      options

	mu           sync.Mutex
	mapping      *Mapping
	reservations []*resource.Managed[*reservation]
	hot          *cache.Cache[string, uint32]
}

// NewManager creates a manager. Reservations are tracked by resources.
func NewManager(reserver *Reserver, resources *resource.Manager, opts ...Option) *Manager {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		reserver:  reserver,
		resources: resources,
		opts:      o,
		hot:       cache.New[string, uint32](o.lruSize),
	}
}

// Initialize reserves the first range and creates an empty mapping.
// Calling it again on an initialized manager is a no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mapping != nil {
		return nil
	}
	rng, err := m.reserveLocked(ctx)
	if err != nil {
		return err
	}
	m.mapping = NewMapping(rng)
	return nil
}

// reserveLocked reserves a range and tracks it. Must be called with m.mu held.
func (m *Manager) reserveLocked(ctx context.Context) (Range, error) {
	rng, err := m.reserver.ReserveIDs(ctx, m.opts.reservation)
	if err != nil {
		return Range{}, fmt.Errorf("material: reserve: %w", err)
	}
	r, err := resource.Track(m.resources, &reservation{rng: rng})
	if err != nil {
		return Range{}, err
	}
	m.reservations = append(m.reservations, r)
	return rng, nil
}

// MaterialID returns the native ID for ext, assigning one on first use.
//
// When the current range is exhausted it fails with ErrRangeExhausted,
// unless auto-expansion is enabled, in which case a new range is reserved
// and previously assigned IDs stay unchanged.
func (m *Manager) MaterialID(ctx context.Context, ext string) (uint32, error) {
	if id, ok := m.hot.Get(ext); ok {
		return id, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mapping == nil {
		return 0, ErrNotInitialized
	}

	id, err := m.mapping.assign(ext)
	if errors.Is(err, ErrRangeExhausted) && m.opts.autoExpand {
		rng, rerr := m.reserveLocked(ctx)
		if rerr != nil {
			return 0, errors.Join(err, rerr)
		}
		m.logger().Info("material range expanded", "range", rng.String(), "mapped", m.mapping.Len())
		next, cerr := CreateMapping([]string{ext}, rng, m.mapping)
		if cerr != nil {
			return 0, cerr
		}
		m.mapping = next
		id, _ = next.Lookup(ext)
		err = nil
	}
	if err != nil {
		return 0, err
	}
	m.hot.Set(ext, id)
	return id, nil
}

// IDs returns a lookup function for converters, bound to ctx.
func (m *Manager) IDs(ctx context.Context) func(string) (uint32, error) {
	return func(ext string) (uint32, error) {
		return m.MaterialID(ctx, ext)
	}
}

// ExternalID returns the external identifier assigned to id.
func (m *Manager) ExternalID(id uint32) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mapping == nil {
		return "", false
	}
	return m.mapping.External(id)
}

// Mapping returns a snapshot of the current mapping, or nil before Initialize.
func (m *Manager) Mapping() *Mapping {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mapping == nil {
		return nil
	}
	return m.mapping.Clone()
}

// Ranges returns every range reserved since Initialize.
func (m *Manager) Ranges() []Range {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Range, len(m.reservations))
	for i, r := range m.reservations {
		out[i] = r.Resource.rng
	}
	return out
}

// CacheStats returns the lookup cache statistics.
func (m *Manager) CacheStats() cache.Stats {
	return m.hot.Stats()
}

// Dispose releases every reservation and clears the mapping and cache.
// The manager can be initialized again afterwards.
func (m *Manager) Dispose() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, r := range m.reservations {
		if err := r.Dispose(); err != nil && !errors.Is(err, resource.ErrAlreadyDisposed) {
			errs = append(errs, err)
		}
	}
	m.reservations = nil
	m.mapping = nil
	m.hot.Clear()
	return errors.Join(errs...)
}

func (m *Manager) logger() *slog.Logger {
	if m.opts.logger != nil {
		return m.opts.logger
	}
	return csg.Logger()
}
