package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("csg.pipeline")

type metrics struct {
	conversions *prometheus.CounterVec
	cache       *prometheus.CounterVec
	nodes       *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		conversions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csg",
			Subsystem: "pipeline",
			Name:      "conversions_total",
			Help:      "Scene conversions by outcome.",
		}, []string{"status"}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csg",
			Subsystem: "pipeline",
			Name:      "cache_lookups_total",
			Help:      "Subtree cache lookups by result.",
		}, []string{"result"}),
		nodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csg",
			Subsystem: "pipeline",
			Name:      "nodes_total",
			Help:      "Converted scene nodes by kind.",
		}, []string{"kind"}),
	}
}
