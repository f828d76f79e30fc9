package resource

import (
	"log/slog"
	"time"
)

// options holds Manager configuration.
type options struct {
	logger        *slog.Logger
	now           func() time.Time
	pressureLimit int
	onPressure    func(MemoryStats)
	leakAge       time.Duration
}

func defaultOptions() options {
	return options{now: time.Now}
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets a per-manager logger instead of csg.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock replaces time.Now. It is meant for tests that check resource ages.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPressureLimit calls fn when the number of active resources reaches
// limit. fn runs outside the manager lock, once per upward crossing.
func WithPressureLimit(limit int, fn func(MemoryStats)) Option {
	return func(o *options) {
		o.pressureLimit = limit
		o.onPressure = fn
	}
}

// WithLeakDetection sets the age after which a live resource is reported
// by Leaks and the leak monitor.
func WithLeakDetection(age time.Duration) Option {
	return func(o *options) {
		o.leakAge = age
	}
}
