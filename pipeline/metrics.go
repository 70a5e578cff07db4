package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the export run.
type Metrics struct {
	Registry        *prometheus.Registry
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	RecordsTotal    prometheus.Counter
	DiscoveredTotal prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shelf_fetches_total",
			Help: "Detail fetches by outcome.",
		},
		[]string{"outcome"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shelf_fetch_duration_seconds",
			Help:    "Detail fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	records := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shelf_records_total",
			Help: "Records extracted from detail pages.",
		},
	)
	discovered := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "shelf_discovered_total",
			Help: "Item references produced by discovery.",
		},
	)

	registry.MustRegister(fetches, fetchDuration, records, discovered)

	return &Metrics{
		Registry:        registry,
		FetchesTotal:    fetches,
		FetchDuration:   fetchDuration,
		RecordsTotal:    records,
		DiscoveredTotal: discovered,
	}
}

// IncFetch increments the fetches counter for an outcome label.
func (m *Metrics) IncFetch(outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records one fetch duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncRecords increments the extracted-records counter.
func (m *Metrics) IncRecords() {
	if m == nil {
		return
	}
	m.RecordsTotal.Inc()
}

// AddDiscovered adds to the discovered-references counter.
func (m *Metrics) AddDiscovered(n int) {
	if m == nil {
		return
	}
	m.DiscoveredTotal.Add(float64(n))
}
