// Package metrics exposes relay and backend counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "askg"

// Backend call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeStatus    = "status"
	OutcomeMalformed = "malformed"
	OutcomeRPCError  = "rpc_error"
	OutcomeTransport = "transport"
)

// Collector groups every metric the service records.
type Collector struct {
	registry *prometheus.Registry

	sessionsActive  prometheus.Gauge
	events          *prometheus.CounterVec
	emitsDropped    prometheus.Counter
	backendRequests *prometheus.CounterVec
	backendDuration prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "sessions_active",
			Help:      "Number of live client sessions.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Inbound session events by type.",
		}, []string{"event"}),
		emitsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "emits_dropped_total",
			Help:      "Outbound events discarded because their session was gone.",
		}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Search backend calls by outcome.",
		}, []string{"outcome"}),
		backendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Search backend round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	c.registry.MustRegister(
		c.sessionsActive,
		c.events,
		c.emitsDropped,
		c.backendRequests,
		c.backendDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) SessionOpened() {
	if c != nil {
		c.sessionsActive.Inc()
	}
}

func (c *Collector) SessionClosed() {
	if c != nil {
		c.sessionsActive.Dec()
	}
}

func (c *Collector) Event(event string) {
	if c != nil {
		c.events.WithLabelValues(event).Inc()
	}
}

func (c *Collector) EmitDropped() {
	if c != nil {
		c.emitsDropped.Inc()
	}
}

// BackendCall records one search round trip.
func (c *Collector) BackendCall(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.backendRequests.WithLabelValues(outcome).Inc()
	c.backendDuration.Observe(elapsed.Seconds())
}
