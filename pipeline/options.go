package pipeline

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	csg "github.com/holistic-stack/ob-sub002"
	"github.com/holistic-stack/ob-sub002/engine"
	"github.com/holistic-stack/ob-sub002/resource"
)

type options struct {
	config     csg.Config
	loader     *engine.Loader
	registerer prometheus.Registerer
	logger     *slog.Logger
	now        func() time.Time
	onPressure func(resource.MemoryStats)
	onLeaks    func([]resource.LeakReport)
}

func defaultOptions() options {
	return options{
		config: csg.DefaultConfig(),
		now:    time.Now,
	}
}

// Option configures a Session.
type Option func(*options)

// WithConfig replaces the default configuration.
func WithConfig(c csg.Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithLoader shares an engine loader between sessions. The session does
// not close engines it did not load itself.
func WithLoader(l *engine.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithRegisterer registers the session and operation metrics on reg.
// Each session needs its own registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithLogger sets a per-session logger instead of csg.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock replaces time.Now for cache expiry and resource ages.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithPressureHandler is called when active native resources reach
// resources.pressure_limit.
func WithPressureHandler(fn func(resource.MemoryStats)) Option {
	return func(o *options) {
		o.onPressure = fn
	}
}

// WithLeakHandler receives the reports of the leak monitor, which runs
// when resources.leak_age is set.
func WithLeakHandler(fn func([]resource.LeakReport)) Option {
	return func(o *options) {
		o.onLeaks = fn
	}
}
