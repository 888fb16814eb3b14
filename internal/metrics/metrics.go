// Package metrics exposes station counters for Prometheus. Every method is
// safe to call on a nil *Metrics, so components can run without metrics in
// tests.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatewise"

type Metrics struct {
	registry *prometheus.Registry

	decisions         *prometheus.CounterVec
	eventsReceived    *prometheus.CounterVec
	parseFailures     prometheus.Counter
	storageFailures   prometheus.Counter
	commands          *prometheus.CounterVec
	activeConnections prometheus.Gauge
	ringSize          prometheus.Gauge
	droppedDeliveries prometheus.Counter
	httpRequests      *prometheus.CounterVec
}

// New registers the station metrics on a private registry, so several
// instances can coexist in one process.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Access decisions by verdict.",
		}, []string{"verdict"}),
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "events_total",
			Help:      "Inbound messages accepted by the aggregator, by kind.",
		}, []string{"kind"}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "parse_failures_total",
			Help:      "Inbound messages rejected as malformed.",
		}),
		storageFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "append_failures_total",
			Help:      "Audit log appends that failed.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "sent_total",
			Help:      "Outbound door commands by command and result.",
		}, []string{"command", "result"}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "active_connections",
			Help:      "Door node connections currently being handled.",
		}),
		ringSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "ring_events",
			Help:      "Events currently held in the monitoring ring.",
		}),
		droppedDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "dropped_deliveries_total",
			Help:      "Subscriber notifications dropped because the subscriber queue was full.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP monitor API requests.",
		}, []string{"method", "path", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.decisions, m.eventsReceived, m.parseFailures, m.storageFailures,
		m.commands, m.activeConnections, m.ringSize, m.droppedDeliveries, m.httpRequests,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Decision(verdict string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(verdict).Inc()
}

func (m *Metrics) EventReceived(kind string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) ParseFailure() {
	if m == nil {
		return
	}
	m.parseFailures.Inc()
}

func (m *Metrics) StorageFailure() {
	if m == nil {
		return
	}
	m.storageFailures.Inc()
}

func (m *Metrics) CommandSent(command string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.commands.WithLabelValues(command, result).Inc()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) RingSize(n int) {
	if m == nil {
		return
	}
	m.ringSize.Set(float64(n))
}

func (m *Metrics) DeliveryDropped() {
	if m == nil {
		return
	}
	m.droppedDeliveries.Inc()
}

func (m *Metrics) HTTPRequest(method, path, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
}
