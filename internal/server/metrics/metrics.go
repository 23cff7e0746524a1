// Package metrics exports the server's Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dualcal"

// Metrics is safe to use through a nil pointer; every recorder is then a
// no-op.
type Metrics struct {
	registry *prometheus.Registry

	RoleChangesTotal    *prometheus.CounterVec
	SignInsTotal        *prometheus.CounterVec
	RPCRequestsTotal    *prometheus.CounterVec
	RPCRequestDuration  *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SubscriptionsActive prometheus.Gauge
	WSConnectionsActive prometheus.Gauge
	ExportsTotal        *prometheus.CounterVec
	PrayerLookupsTotal  *prometheus.CounterVec
}

// New registers every metric on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RoleChangesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_changes_total",
			Help:      "Role assignments by requested role and outcome",
		}, []string{"role", "outcome"}),
		SignInsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sign_ins_total",
			Help:      "Sign-ins by kind (new, existing, bootstrap_created, bootstrap_healed)",
		}, []string{"kind"}),
		RPCRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "gRPC requests by method and status code",
		}, []string{"method", "code"}),
		RPCRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_request_duration_seconds",
			Help:      "gRPC unary request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP gateway requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP gateway request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),
		SubscriptionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Open live query subscriptions",
		}),
		WSConnectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections_active",
			Help:      "Active WebSocket connections",
		}),
		ExportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Month exports by outcome",
		}, []string{"outcome"}),
		PrayerLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prayer_lookups_total",
			Help:      "Prayer timing lookups by outcome",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) RoleChanged(role string, err error) {
	if m == nil {
		return
	}
	m.RoleChangesTotal.WithLabelValues(role, outcome(err)).Inc()
}

func (m *Metrics) SignedIn(kind string) {
	if m == nil {
		return
	}
	m.SignInsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.RPCRequestsTotal.WithLabelValues(method, code).Inc()
	m.RPCRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) SubscriptionOpened() {
	if m == nil {
		return
	}
	m.SubscriptionsActive.Inc()
}

func (m *Metrics) SubscriptionClosed() {
	if m == nil {
		return
	}
	m.SubscriptionsActive.Dec()
}

func (m *Metrics) WSConnected() {
	if m == nil {
		return
	}
	m.WSConnectionsActive.Inc()
}

func (m *Metrics) WSDisconnected() {
	if m == nil {
		return
	}
	m.WSConnectionsActive.Dec()
}

func (m *Metrics) Exported(err error) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) PrayerLookup(err error) {
	if m == nil {
		return
	}
	m.PrayerLookupsTotal.WithLabelValues(outcome(err)).Inc()
}
