// Package metrics provides Prometheus metrics for the dev proxy and the
// console client.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Default histogram buckets for API latency.
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics holds all Prometheus metric collectors.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	UpstreamDuration  *prometheus.HistogramVec
	UpstreamResponses *prometheus.CounterVec

	ClientDuration     *prometheus.HistogramVec
	ClientResponses    *prometheus.CounterVec
	ClientFailures     *prometheus.CounterVec
	SessionExpirations prometheus.Counter

	prefixes []string
}

// New creates a Metrics instance with a custom registry and all collectors
// registered. proxyPrefixes are added to the bounded path label set.
func New(proxyPrefixes ...string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_proxy_http_requests_total",
			Help: "Total inbound HTTP requests.",
		}, []string{"method", "status_code", "path_prefix"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_proxy_http_request_duration_seconds",
			Help:    "Inbound HTTP request latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method", "status_code", "path_prefix"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "console_proxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_proxy_upstream_request_duration_seconds",
			Help:    "Upstream call latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),
		UpstreamResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_proxy_upstream_responses_total",
			Help: "Total upstream responses by method and status code.",
		}, []string{"method", "status_code"}),
		ClientDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "console_client_request_duration_seconds",
			Help:    "Console API call latency in seconds.",
			Buckets: defaultBuckets,
		}, []string{"method"}),
		ClientResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_client_responses_total",
			Help: "Console API responses by method and status code.",
		}, []string{"method", "status_code"}),
		ClientFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_client_failures_total",
			Help: "Console API calls that failed, by kind (rejected, transport, status).",
		}, []string{"kind"}),
		SessionExpirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "console_client_session_expirations_total",
			Help: "Responses that reported an expired session.",
		}),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestsInFlight,
		m.UpstreamDuration,
		m.UpstreamResponses,
		m.ClientDuration,
		m.ClientResponses,
		m.ClientFailures,
		m.SessionExpirations,
	)

	m.prefixes = append([]string{"/healthz", "/proxy/status", "/metrics"}, proxyPrefixes...)
	// Longest first so nested prefixes win over their parents.
	sort.SliceStable(m.prefixes, func(i, j int) bool {
		return len(m.prefixes[i]) > len(m.prefixes[j])
	})
	return m
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

// NormalizePath returns a bounded path label for Prometheus metrics.
func (m *Metrics) NormalizePath(path string) string {
	for _, prefix := range m.prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") || strings.HasPrefix(path, prefix+"?") {
			return prefix
		}
	}
	return "other"
}
