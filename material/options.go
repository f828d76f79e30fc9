package material

import (
	"log/slog"

	csg "github.com/holistic-stack/ob-sub002"
)

type options struct {
	reservation uint32
	lruSize     int
	autoExpand  bool
	logger      *slog.Logger
}

func defaultOptions() options {
	return options{
		reservation: csg.DefaultMaterialReservation,
		lruSize:     csg.DefaultMaterialLRU,
	}
}

// Option configures a Manager.
type Option func(*options)

// WithReservation sets how many IDs Initialize and each expansion reserve.
func WithReservation(n uint32) Option {
	return func(o *options) {
		o.reservation = n
	}
}

// WithLRUSize bounds the lookup cache. Zero means unbounded.
func WithLRUSize(n int) Option {
	return func(o *options) {
		o.lruSize = n
	}
}

// WithAutoExpand lets MaterialID reserve a new range when the current one
// is exhausted instead of failing with ErrRangeExhausted.
func WithAutoExpand(enabled bool) Option {
	return func(o *options) {
		o.autoExpand = enabled
	}
}

// WithLogger sets a per-manager logger instead of csg.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// FromConfig converts the materials section of a configuration file.
func FromConfig(c csg.MaterialConfig) []Option {
	return []Option{
		WithReservation(c.Reservation),
		WithLRUSize(c.LRUSize),
		WithAutoExpand(c.AutoExpand),
	}
}
