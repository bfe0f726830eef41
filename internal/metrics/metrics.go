package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the client's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	submits     *prometheus.CounterVec
	reloads     *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "katalog",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Backend requests issued by the resource client.",
			},
			[]string{"resource", "method", "status"},
		),
		apiDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "katalog",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Duration of backend requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"resource", "method"},
		),
		submits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "katalog",
				Subsystem: "itemform",
				Name:      "submits_total",
				Help:      "Item form submissions by mode and result.",
			},
			[]string{"mode", "result"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "katalog",
				Subsystem: "itemlist",
				Name:      "reloads_total",
				Help:      "Item list reloads by trigger.",
			},
			[]string{"trigger"},
		),
	}
	m.registry.MustRegister(m.apiRequests, m.apiDuration, m.submits, m.reloads)
	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one backend call. status 0 means unreachable.
func (m *Metrics) ObserveRequest(resource, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(resource, method, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(resource, method).Observe(d.Seconds())
}

// ObserveSubmit records a form submission outcome.
func (m *Metrics) ObserveSubmit(mode string, ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "success"
	}
	m.submits.WithLabelValues(mode, result).Inc()
}

// ObserveReload records a list reload and what triggered it.
func (m *Metrics) ObserveReload(trigger string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(trigger).Inc()
}
