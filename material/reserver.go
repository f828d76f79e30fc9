package material

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/engine"
)

// FallbackSeed is the first ID handed out when the engine cannot reserve
// IDs. Engines stay at or below engine.MaxReservedID, so fallback ranges
// never collide with them.
const FallbackSeed = engine.MaxReservedID + 1

// Reserver hands out disjoint ID ranges.
//
// It asks the engine from its loader first. When no engine can be loaded,
// or the engine refuses, it falls back to a local counter that starts at
// FallbackSeed and advances by exactly the reserved count. Fallback IDs
// are never reused.
type Reserver struct {
	loader *engine.Loader
	now    func() time.Time

	mu       sync.Mutex
	fallback uint32
}

// NewReserver creates a reserver backed by loader. A nil loader always
// uses the fallback counter.
func NewReserver(loader *engine.Loader) *Reserver {
	return &Reserver{loader: loader, now: time.Now, fallback: FallbackSeed}
}

// ReserveIDs reserves count consecutive IDs.
// count must be in [1, csg.MaxMaterialReservation].
func (r *Reserver) ReserveIDs(ctx context.Context, count uint32) (Range, error) {
	if count == 0 || count > csg.MaxMaterialReservation {
		return Range{}, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCount, count, csg.MaxMaterialReservation)
	}

	if r.loader != nil {
		start, err := r.fromEngine(ctx, count)
		switch {
		case err == nil:
			rng := NewRange(start, count, r.now())
			csg.Logger().Info("material range reserved", "range", rng.String(), "source", "engine")
			return rng, nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return Range{}, err
		default:
			csg.Logger().Warn("engine ID reservation failed, using local counter", "error", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// EndID+1 must stay representable so mappings can track NextAvailable.
	if uint64(r.fallback)+uint64(count) > math.MaxUint32 {
		return Range{}, fmt.Errorf("%w: fallback ID space used up", ErrRangeExhausted)
	}
	rng := NewRange(r.fallback, count, r.now())
	r.fallback += count
	csg.Logger().Info("material range reserved", "range", rng.String(), "source", "fallback")
	return rng, nil
}

func (r *Reserver) fromEngine(ctx context.Context, count uint32) (uint32, error) {
	e, err := r.loader.Load(ctx)
	if err != nil {
		return 0, err
	}
	start, err := e.ReserveIDs(count)
	if err != nil {
		return 0, err
	}
	if start == 0 || uint64(start)+uint64(count)-1 > uint64(engine.MaxReservedID) {
		return 0, fmt.Errorf("engine range [%d,+%d) leaves the engine ID space: %w", start, count, engine.ErrIDsExhausted)
	}
	return start, nil
}
