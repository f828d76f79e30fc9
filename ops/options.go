package ops

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/holistic-stack/ob-sub002/material"
)

type options struct {
	materials  *material.Manager
	registerer prometheus.Registerer
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*options)

// WithMaterials resolves material groups through m. Without it, boolean
// results carry no material groups.
func WithMaterials(m *material.Manager) Option {
	return func(o *options) {
		o.materials = m
	}
}

// WithRegisterer registers the operation metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithLogger sets a per-service logger instead of csg.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
