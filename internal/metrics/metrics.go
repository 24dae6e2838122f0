// Package metrics provides Prometheus metrics for the proxy.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for API latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Destination roles used as label values.
const (
	RolePrimary = "primary"
	RoleShadow  = "shadow"
)

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	DestinationDuration *prometheus.HistogramVec
	DestinationOutcomes *prometheus.CounterVec
	Verdicts            *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shadow_proxy_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "route"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shadow_proxy_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "route"}),

		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shadow_proxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),

		DestinationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shadow_proxy_destination_duration_seconds",
			Help:    "Outbound destination call latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"role"}),

		DestinationOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shadow_proxy_destination_outcomes_total",
			Help: "Outbound destination calls by role and outcome.",
		}, []string{"role", "outcome"}),

		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shadow_proxy_verdicts_total",
			Help: "Reconciliation verdicts of routed requests.",
		}, []string{"verdict"}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.DestinationDuration,
		m.DestinationOutcomes,
		m.Verdicts,
	)

	return m
}

// Role returns the role label for the destination at position i.
func Role(i int) string {
	if i == 0 {
		return RolePrimary
	}
	return RoleShadow
}

// knownMethods lists the allowed HTTP method label values (bounded cardinality).
var knownMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// NormalizeMethod returns a bounded HTTP method label for Prometheus metrics.
// Non-standard methods are mapped to "other" to prevent cardinality explosion.
func NormalizeMethod(method string) string {
	if knownMethods[method] {
		return method
	}
	return "other"
}

// NormalizeRoute returns a bounded route label. Proxied paths are arbitrary,
// so only whether the request hit one of the proxy's own endpoints is kept.
func NormalizeRoute(path string, adminPaths ...string) string {
	for _, prefix := range adminPaths {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return "admin"
		}
	}
	return "proxy"
}
