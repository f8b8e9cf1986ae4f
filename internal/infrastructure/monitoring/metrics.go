// Package monitoring provides Prometheus metrics for the HTTP surface and
// the script runtime.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. Each instance carries its own
// registry so independent servers never collide on collector names.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ScriptCalls    *prometheus.CounterVec
	ScriptErrors   *prometheus.CounterVec
	ScriptTimeouts *prometheus.CounterVec

	SourcesInstalled prometheus.Gauge
	Uptime           prometheus.Gauge

	registry  *prometheus.Registry
	startTime time.Time
}

// NewMetrics creates and registers the metrics collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry:  registry,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanade_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kanade_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"method", "path"},
		),

		ScriptCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanade_script_calls_total",
				Help: "Total number of sandbox call dispatches",
			},
			[]string{"source", "method"},
		),
		ScriptErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanade_script_errors_total",
				Help: "Total number of sandbox call failures",
			},
			[]string{"source", "method"},
		),
		ScriptTimeouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kanade_script_timeouts_total",
				Help: "Total number of sandbox calls exceeding the deadline",
			},
			[]string{"source", "method"},
		),

		SourcesInstalled: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kanade_sources_installed",
				Help: "Number of installed script sources",
			},
		),
		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "kanade_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}
}

// Registry exposes this instance's collector registry for serving.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one finished HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordScriptCall records one sandbox call and its outcome.
func (m *Metrics) RecordScriptCall(source, method string, err error, timedOut bool) {
	m.ScriptCalls.WithLabelValues(source, method).Inc()
	if timedOut {
		m.ScriptTimeouts.WithLabelValues(source, method).Inc()
	}
	if err != nil {
		m.ScriptErrors.WithLabelValues(source, method).Inc()
	}
}
