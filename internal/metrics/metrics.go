// Package metrics collects Prometheus metrics for upstream fetches,
// aggregation runs and advice generation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Recorder is what the fitbit client, pipeline and advice generator report to.
type Recorder interface {
	ObserveUpstream(category, outcome string, d time.Duration)
	ObserveAggregation(outcome string, d time.Duration)
	ObserveGeneration(outcome string, d time.Duration)
}

// Collector is the Prometheus Recorder.
type Collector struct {
	upstreamTotal      *prometheus.CounterVec
	upstreamLatency    *prometheus.HistogramVec
	aggregationTotal   *prometheus.CounterVec
	aggregationLatency prometheus.Histogram
	generationTotal    *prometheus.CounterVec
	generationLatency  prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitadvice",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Fitbit API requests by category and outcome.",
		}, []string{"category", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fitadvice",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Fitbit API request latency by category.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category"}),
		aggregationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitadvice",
			Subsystem: "pipeline",
			Name:      "aggregations_total",
			Help:      "Health record aggregations by outcome.",
		}, []string{"outcome"}),
		aggregationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fitadvice",
			Subsystem: "pipeline",
			Name:      "aggregation_duration_seconds",
			Help:      "Wall time of a full health record aggregation.",
			Buckets:   prometheus.DefBuckets,
		}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fitadvice",
			Subsystem: "advice",
			Name:      "generations_total",
			Help:      "Advice generation calls by outcome.",
		}, []string{"outcome"}),
		generationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fitadvice",
			Subsystem: "advice",
			Name:      "generation_duration_seconds",
			Help:      "Advice generation latency.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
	}

	reg.MustRegister(
		c.upstreamTotal,
		c.upstreamLatency,
		c.aggregationTotal,
		c.aggregationLatency,
		c.generationTotal,
		c.generationLatency,
	)
	return c
}

func (c *Collector) ObserveUpstream(category, outcome string, d time.Duration) {
	c.upstreamTotal.WithLabelValues(category, outcome).Inc()
	c.upstreamLatency.WithLabelValues(category).Observe(d.Seconds())
}

func (c *Collector) ObserveAggregation(outcome string, d time.Duration) {
	c.aggregationTotal.WithLabelValues(outcome).Inc()
	c.aggregationLatency.Observe(d.Seconds())
}

func (c *Collector) ObserveGeneration(outcome string, d time.Duration) {
	c.generationTotal.WithLabelValues(outcome).Inc()
	c.generationLatency.Observe(d.Seconds())
}

// Nop discards all observations.
type Nop struct{}

func (Nop) ObserveUpstream(string, string, time.Duration) {}
func (Nop) ObserveAggregation(string, time.Duration)      {}
func (Nop) ObserveGeneration(string, time.Duration)       {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
