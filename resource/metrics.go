package resource

import "github.com/prometheus/client_golang/prometheus"

var (
	descAllocated = prometheus.NewDesc("csg_resources_allocated_total",
		"Native resources tracked since the manager was created or reset.", nil, nil)
	descFreed = prometheus.NewDesc("csg_resources_freed_total",
		"Native resources released.", nil, nil)
	descActive = prometheus.NewDesc("csg_resources_active",
		"Native resources currently tracked.", nil, nil)
	descPeak = prometheus.NewDesc("csg_resources_peak",
		"Highest number of simultaneously tracked native resources.", nil, nil)
	descReclaimed = prometheus.NewDesc("csg_resources_reclaimed_total",
		"Native resources released by the garbage-collector safety net.", nil, nil)
)

// Describe implements prometheus.Collector.
func (m *Manager) Describe(ch chan<- *prometheus.Desc) {
	ch <- descAllocated
	ch <- descFreed
	ch <- descActive
	ch <- descPeak
	ch <- descReclaimed
}

// Collect implements prometheus.Collector.
func (m *Manager) Collect(ch chan<- prometheus.Metric) {
	s := m.Stats()
	ch <- prometheus.MustNewConstMetric(descAllocated, prometheus.CounterValue, float64(s.TotalAllocated))
	ch <- prometheus.MustNewConstMetric(descFreed, prometheus.CounterValue, float64(s.TotalFreed))
	ch <- prometheus.MustNewConstMetric(descActive, prometheus.GaugeValue, float64(s.ActiveResources))
	ch <- prometheus.MustNewConstMetric(descPeak, prometheus.GaugeValue, float64(s.PeakUsage))
	ch <- prometheus.MustNewConstMetric(descReclaimed, prometheus.CounterValue, float64(m.Reclaimed()))
}

var _ prometheus.Collector = (*Manager)(nil)
