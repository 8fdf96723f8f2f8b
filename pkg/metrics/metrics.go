// Package metrics defines the Prometheus collectors recorded by invocations
// and by the HTTP trigger, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	InvocationsTotal       *prometheus.CounterVec
	StageDuration          *prometheus.HistogramVec
	UpstreamResponsesTotal *prometheus.CounterVec
	MessagesPublishedTotal *prometheus.CounterVec
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInFlight   prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardianstream_invocations_total",
				Help: "Total invocations by envelope status code.",
			},
			[]string{"status"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guardianstream_stage_duration_seconds",
				Help:    "Duration of each invocation stage in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"stage"},
		),
		UpstreamResponsesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardianstream_upstream_responses_total",
				Help: "Guardian API responses by HTTP status code.",
			},
			[]string{"status_code"},
		),
		MessagesPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardianstream_messages_published_total",
				Help: "Messages published by destination queue.",
			},
			[]string{"queue"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
	}

	reg.MustRegister(
		m.InvocationsTotal,
		m.StageDuration,
		m.UpstreamResponsesTotal,
		m.MessagesPublishedTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
	)

	return m
}

func (m *Metrics) RecordInvocation(status int) {
	if m == nil {
		return
	}
	m.InvocationsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordUpstream(statusCode int) {
	if m == nil {
		return
	}
	m.UpstreamResponsesTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) RecordPublished(queue string, n int) {
	if m == nil {
		return
	}
	m.MessagesPublishedTotal.WithLabelValues(queue).Add(float64(n))
}

// Handler returns the scrape handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
