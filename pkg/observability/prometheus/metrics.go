package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "mtp"

// Metrics holds the gateway collectors and the registry they are registered on
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	httpInFlight    prometheus.Gauge
	transitions     *prometheus.CounterVec
	transitionTime  *prometheus.HistogramVec
	subscriptions   prometheus.Gauge
	snapshotsPushed prometheus.Counter
	pushConnections prometheus.Gauge
	pushFrames      *prometheus.CounterVec
}

// NewMetrics creates the collectors on a fresh registry that also carries
// the Go runtime and process collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests being served.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "navigation",
			Name:      "transitions_total",
			Help:      "Navigation attempts by target state and outcome.",
		}, []string{"to", "outcome"}),
		transitionTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "navigation",
			Name:      "transition_duration_seconds",
			Help:      "Time spent running resolvers and lifecycle hooks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"to"}),
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transactions_by_status",
			Name:      "subscriptions_active",
			Help:      "Open transactions-by-status subscriptions.",
		}),
		snapshotsPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transactions_by_status",
			Name:      "snapshots_pushed_total",
			Help:      "Snapshots pushed to subscribed clients.",
		}),
		pushConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
		pushFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "push",
			Name:      "frames_total",
			Help:      "Websocket frames by direction and type.",
		}, []string{"direction", "type"}),
	}

	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.httpInFlight,
		m.transitions, m.transitionTime,
		m.subscriptions, m.snapshotsPushed,
		m.pushConnections, m.pushFrames,
	)
	return m
}

// ObserveTransition records one navigation attempt
func (m *Metrics) ObserveTransition(from, to, outcome string, d time.Duration) {
	m.transitions.WithLabelValues(to, outcome).Inc()
	m.transitionTime.WithLabelValues(to).Observe(d.Seconds())
}

// SubscriptionOpened increments the active subscription gauge
func (m *Metrics) SubscriptionOpened() { m.subscriptions.Inc() }

// SubscriptionClosed decrements the active subscription gauge
func (m *Metrics) SubscriptionClosed() { m.subscriptions.Dec() }

// SnapshotPushed counts a pushed snapshot
func (m *Metrics) SnapshotPushed() { m.snapshotsPushed.Inc() }

// ConnectionOpened counts an open websocket
func (m *Metrics) ConnectionOpened() { m.pushConnections.Inc() }

// ConnectionClosed uncounts a closed websocket
func (m *Metrics) ConnectionClosed() { m.pushConnections.Dec() }

// FrameIn counts a received frame
func (m *Metrics) FrameIn(frameType string) {
	m.pushFrames.WithLabelValues("in", frameType).Inc()
}

// FrameOut counts a sent frame
func (m *Metrics) FrameOut(frameType string) {
	m.pushFrames.WithLabelValues("out", frameType).Inc()
}
