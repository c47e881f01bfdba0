// Package monitoring exposes Prometheus metrics for the shell: navigation
// policy outcomes, bridge message dispatch, and surface channel health.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Navigation metrics
	NavigationDecisions *prometheus.CounterVec
	SurfaceLoadFailures prometheus.Counter

	// Bridge metrics
	BridgeMessages *prometheus.CounterVec
	DispatchErrors *prometheus.CounterVec

	// Surface channel metrics
	SurfaceConnections prometheus.Gauge

	// Control server metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a metrics collector registered on the default
// registerer.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a metrics collector on a private
// registry. Tests use this to avoid duplicate registration.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		NavigationDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webshell_navigation_decisions_total",
				Help: "Navigation policy decisions by classifier outcome and action",
			},
			[]string{"class", "decision"},
		),
		SurfaceLoadFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webshell_surface_load_failures_total",
				Help: "Surface load failures that reached the error state",
			},
		),
		BridgeMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webshell_bridge_messages_total",
				Help: "Bridge messages dispatched by kind",
			},
			[]string{"kind"},
		),
		DispatchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webshell_bridge_dispatch_errors_total",
				Help: "Bridge dispatch problems by reason",
			},
			[]string{"reason"},
		),
		SurfaceConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "webshell_surface_connections",
				Help: "Currently connected surface hosts",
			},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webshell_http_requests_total",
				Help: "Control server requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webshell_http_request_duration_seconds",
				Help:    "Control server request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordDecision implements the navigation policy metrics sink.
func (m *Metrics) RecordDecision(class, decision string) {
	m.NavigationDecisions.WithLabelValues(class, decision).Inc()
}

// RecordMessage implements the dispatcher metrics sink.
func (m *Metrics) RecordMessage(kind string) {
	m.BridgeMessages.WithLabelValues(kind).Inc()
}

// RecordDispatchError implements the dispatcher metrics sink.
func (m *Metrics) RecordDispatchError(reason string) {
	m.DispatchErrors.WithLabelValues(reason).Inc()
}

// RecordLoadFailure counts a surface load failure.
func (m *Metrics) RecordLoadFailure() {
	m.SurfaceLoadFailures.Inc()
}

// SurfaceConnected tracks surface channel attach/detach.
func (m *Metrics) SurfaceConnected(delta float64) {
	m.SurfaceConnections.Add(delta)
}

// RecordHTTPRequest records one control-server request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
