package ops

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("csg.ops")

// metrics holds the prometheus collectors of one Service.
type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	objects    prometheus.Counter
}

// newMetrics creates the collectors, registering them on reg when it is
// not nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csg",
			Subsystem: "ops",
			Name:      "operations_total",
			Help:      "CSG operations by kind and outcome.",
		}, []string{"op", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "csg",
			Subsystem: "ops",
			Name:      "duration_seconds",
			Help:      "Wall time of CSG operations, conversions included.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op"}),
		objects: f.NewCounter(prometheus.CounterOpts{
			Namespace: "csg",
			Subsystem: "ops",
			Name:      "native_objects_total",
			Help:      "Native objects created by CSG operations.",
		}),
	}
}

func (m *metrics) observe(op string, d time.Duration, created int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(op, status).Inc()
	m.objects.Add(float64(created))
	if err == nil {
		m.duration.WithLabelValues(op).Observe(d.Seconds())
	}
}
