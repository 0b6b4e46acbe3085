// Package metrics exposes Prometheus collectors for dialogue turns and
// knowledge-base access. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adviser"

type Metrics struct {
	registry *prometheus.Registry

	turns         *prometheus.CounterVec
	actions       *prometheus.CounterVec
	kbQueries     *prometheus.CounterVec
	kbWrites      *prometheus.CounterVec
	geocodeTime   *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	activeDialogs prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Dialogue turns processed, by outcome.",
		}, []string{"outcome"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_acts_total",
			Help:      "Classified user actions consumed, by type.",
		}, []string{"type"}),
		kbQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kb_queries_total",
			Help:      "Knowledge-base read operations, by operation and outcome.",
		}, []string{"op", "outcome"}),
		kbWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kb_writes_total",
			Help:      "Knowledge-base write operations, by operation and outcome.",
		}, []string{"op", "outcome"}),
		geocodeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_duration_seconds",
			Help:      "Latency of geocoding lookups.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method and status class.",
		}, []string{"method", "status"}),
		activeDialogs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_dialogues",
			Help:      "Dialogues currently held in memory.",
		}),
	}
	reg.MustRegister(
		m.turns, m.actions, m.kbQueries, m.kbWrites, m.geocodeTime, m.httpRequests, m.activeDialogs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Turn(outcome string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) UserAct(actType string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(actType).Inc()
}

func (m *Metrics) Query(op string, err error) {
	if m == nil {
		return
	}
	m.kbQueries.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Metrics) Write(op string, err error) {
	if m == nil {
		return
	}
	m.kbWrites.WithLabelValues(op, outcome(err)).Inc()
}

func (m *Metrics) Geocode(start time.Time, err error) {
	if m == nil {
		return
	}
	m.geocodeTime.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) HTTPRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, fmt.Sprintf("%dxx", status/100)).Inc()
}

func (m *Metrics) ActiveDialogues(n int) {
	if m == nil {
		return
	}
	m.activeDialogs.Set(float64(n))
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
