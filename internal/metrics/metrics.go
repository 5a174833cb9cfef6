package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels of a refresh cycle.
const (
	OutcomeSuccess    = "success"
	OutcomePartial    = "partial"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
)

// Collector provides application metrics collection. Every collector owns its
// registry so tests and multiple servers never clash on registration.
type Collector struct {
	registry *prometheus.Registry

	// Refresh Metrics
	RefreshesTotal    *prometheus.CounterVec
	RefreshDuration   prometheus.Histogram
	FetchErrorsTotal  *prometheus.CounterVec
	SnapshotRecords   *prometheus.GaugeVec
	SnapshotTimestamp prometheus.Gauge
	Generation        prometheus.Gauge

	// HTTP Metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Artifact cache
	ArtifactRequests *prometheus.CounterVec

	// AMQP
	RefreshRequestsReceived prometheus.Counter
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		RefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refreshes_total",
				Help:      "Total number of refresh cycles by outcome",
			},
			[]string{"outcome"},
		),

		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of refresh cycles in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),

		FetchErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_errors_total",
				Help:      "Total number of source fetch failures by category",
			},
			[]string{"category"},
		),

		SnapshotRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_records",
				Help:      "Number of records in the published snapshot by category",
			},
			[]string{"category"},
		),

		SnapshotTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_assembled_timestamp_seconds",
				Help:      "Unix time at which the published snapshot was assembled",
			},
		),

		Generation: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_generation",
				Help:      "Generation number of the published snapshot",
			},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by route, method, and status",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"route"},
		),

		ArtifactRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "artifact_requests_total",
				Help:      "Rendered artifact lookups by artifact and cache result",
			},
			[]string{"artifact", "result"},
		),

		RefreshRequestsReceived: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_requests_received_total",
				Help:      "Refresh requests consumed from the message queue",
			},
		),
	}
}

// Registry exposes the collector's registry for tests and extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// RecordRefresh counts a finished refresh cycle
func (c *Collector) RecordRefresh(outcome string) {
	c.RefreshesTotal.WithLabelValues(outcome).Inc()
}

// RecordFetchError counts a failed category fetch
func (c *Collector) RecordFetchError(category string) {
	c.FetchErrorsTotal.WithLabelValues(category).Inc()
}

// RecordSnapshot updates the gauges describing the published snapshot
func (c *Collector) RecordSnapshot(generation uint64, assembledAt time.Time, helium, propane, diesel int) {
	c.Generation.Set(float64(generation))
	c.SnapshotTimestamp.Set(float64(assembledAt.Unix()))
	c.SnapshotRecords.WithLabelValues("helium").Set(float64(helium))
	c.SnapshotRecords.WithLabelValues("propane").Set(float64(propane))
	c.SnapshotRecords.WithLabelValues("diesel").Set(float64(diesel))
}

// RecordHTTPRequest counts and times one HTTP request
func (c *Collector) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	c.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	c.HTTPRequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordArtifact counts an artifact cache lookup
func (c *Collector) RecordArtifact(artifact string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.ArtifactRequests.WithLabelValues(artifact, result).Inc()
}
