package exporter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	METRIC_ERROR_COUNT = "error_count"
)

// Metrics holds the dashboard's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	errorCount      prometheus.Counter
	cacheRequests   *prometheus.CounterVec
	adapterErrors   *prometheus.CounterVec
	adapterDuration *prometheus.HistogramVec
	routeSelected   *prometheus.CounterVec
	subscribers     prometheus.Gauge
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hipo",
			Subsystem: "dashboard",
			Name:      METRIC_ERROR_COUNT,
			Help:      "Counts the number of errors converted into unavailable values",
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hipo",
			Subsystem: "dashboard",
			Name:      "cache_requests_total",
			Help:      "Query cache lookups by query name and result",
		}, []string{"query", "result"}),
		adapterErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hipo",
			Subsystem: "dashboard",
			Name:      "adapter_errors_total",
			Help:      "Protocol adapter failures",
		}, []string{"protocol"}),
		adapterDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hipo",
			Subsystem: "dashboard",
			Name:      "adapter_duration_seconds",
			Help:      "Protocol adapter call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"protocol"}),
		routeSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hipo",
			Subsystem: "dashboard",
			Name:      "route_selected_total",
			Help:      "Unstake routes offered to users",
		}, []string{"route"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hipo",
			Subsystem: "dashboard",
			Name:      "subscribers",
			Help:      "Active snapshot subscriptions",
		}),
	}

	if registerer != nil {
		registerer.MustRegister(m.errorCount, m.cacheRequests, m.adapterErrors,
			m.adapterDuration, m.routeSelected, m.subscribers)
	}
	return m
}

func (m *Metrics) IncErrorCount() {
	if m == nil {
		return
	}
	m.errorCount.Inc()
}

func (m *Metrics) CacheRequest(query string, result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(query, result).Inc()
}

func (m *Metrics) AdapterError(protocol string) {
	if m == nil {
		return
	}
	m.adapterErrors.WithLabelValues(protocol).Inc()
	m.errorCount.Inc()
}

func (m *Metrics) ObserveAdapter(protocol string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.adapterDuration.WithLabelValues(protocol).Observe(elapsed.Seconds())
}

func (m *Metrics) RouteSelected(route string) {
	if m == nil {
		return
	}
	m.routeSelected.WithLabelValues(route).Inc()
}

func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}
