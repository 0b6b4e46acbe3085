package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/Thommy96/BaRiStA/internal/metrics"
)

// MetricsCollector counts requests and error responses for the JSON stats
// endpoint and, when configured, for Prometheus.
type MetricsCollector struct {
	requestCount *atomic.Int64
	errorCount   *atomic.Int64
	prom         *metrics.Metrics
}

func NewMetricsCollector(requestCount, errorCount *atomic.Int64, prom *metrics.Metrics) *MetricsCollector {
	return &MetricsCollector{
		requestCount: requestCount,
		errorCount:   errorCount,
		prom:         prom,
	}
}

// Middleware counts every request; 4xx and 5xx responses also count as errors.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.requestCount.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			mc.errorCount.Add(1)
		}
		mc.prom.HTTPRequest(r.Method, rw.statusCode)
	})
}
