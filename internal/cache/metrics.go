package cache

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the analysis cache.
type Metrics struct {
	// Cache performance
	HitsTotal   prometheus.Counter
	MissesTotal prometheus.Counter
	Size        prometheus.Gauge

	// Staleness signalling
	StaleMarksTotal prometheus.Counter

	// Compute collaborator
	ComputeDuration prometheus.Histogram
	ComputeFailures prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics for the cache.
//
// Registration happens once per process; repeated calls return the
// same instance, preventing duplicate-collector panics when several
// stores share the registry.
//
// All metrics are prefixed with "analysis_cache_" or
// "analysis_compute_" for namespacing.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HitsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analysis_cache_hits_total",
				Help: "Total number of cache reads that found an entry",
			}),
			MissesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analysis_cache_misses_total",
				Help: "Total number of cache reads that found nothing",
			}),
			Size: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "analysis_cache_size",
				Help: "Current number of cached analysis entries",
			}),
			StaleMarksTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analysis_cache_stale_marks_total",
				Help: "Total number of staleness-marking events",
			}),
			ComputeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "analysis_compute_duration_seconds",
				Help:    "Duration of analysis compute calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			}),
			ComputeFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "analysis_compute_failures_total",
				Help: "Total number of failed analysis compute calls",
			}),
		}
	})
	return globalMetrics
}

// RecordHit records a cache hit.
func (m *Metrics) RecordHit() {
	m.HitsTotal.Inc()
}

// RecordMiss records a cache miss.
func (m *Metrics) RecordMiss() {
	m.MissesTotal.Inc()
}

// SetSize updates the cache size gauge.
func (m *Metrics) SetSize(size int) {
	m.Size.Set(float64(size))
}

// RecordStaleMark records a staleness-marking event.
func (m *Metrics) RecordStaleMark() {
	m.StaleMarksTotal.Inc()
}

// RecordCompute records the outcome of one compute call.
func (m *Metrics) RecordCompute(duration time.Duration, err error) {
	m.ComputeDuration.Observe(duration.Seconds())
	if err != nil {
		m.ComputeFailures.Inc()
	}
}
