package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lingen1218/cfac/internal/view"
)

// Metrics observes view rebuilds.
type Metrics interface {
	Rebuilt(id view.ID, took time.Duration)
	Failed(id view.ID, took time.Duration)
}

// NopMetrics discards observations.
type NopMetrics struct{}

func (NopMetrics) Rebuilt(view.ID, time.Duration) {}
func (NopMetrics) Failed(view.ID, time.Duration)  {}

// PromMetrics exports rebuild counters and latencies to Prometheus.
type PromMetrics struct {
	rebuilds *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPromMetrics registers the rebuild collectors with reg.
func NewPromMetrics(reg prometheus.Registerer) (*PromMetrics, error) {
	m := &PromMetrics{
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cfac_view_rebuilds_total",
			Help: "Completed view rebuilds.",
		}, []string{"view"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cfac_view_rebuild_errors_total",
			Help: "View rebuilds that failed with a query error.",
		}, []string{"view"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cfac_view_rebuild_duration_seconds",
			Help:    "Time spent querying the dataset for one view.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"view"}),
	}
	for _, c := range []prometheus.Collector{m.rebuilds, m.errors, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PromMetrics) Rebuilt(id view.ID, took time.Duration) {
	m.rebuilds.WithLabelValues(string(id)).Inc()
	m.duration.WithLabelValues(string(id)).Observe(took.Seconds())
}

func (m *PromMetrics) Failed(id view.ID, took time.Duration) {
	m.errors.WithLabelValues(string(id)).Inc()
	m.duration.WithLabelValues(string(id)).Observe(took.Seconds())
}
