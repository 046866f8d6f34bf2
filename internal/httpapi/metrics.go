package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

// RegisterMetrics registers the API collectors with the default registry.
// Call once from main; handler code records into the collectors whether or
// not they are registered, which keeps tests free of registry conflicts.
func RegisterMetrics() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
}

// routeLabel collapses per-record paths to their route template so the
// metric label set stays bounded no matter how many records exist.
func routeLabel(path string) string {
	const salesPrefix = "/api/v1/sales/"
	if strings.HasPrefix(path, salesPrefix) && len(path) > len(salesPrefix) {
		return salesPrefix + "{id}"
	}
	return path
}

func observeRequest(method, path string, status int, elapsed time.Duration) {
	route := routeLabel(path)
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
