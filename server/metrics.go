package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the HTTP surface.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// MustNewMetrics constructs the HTTP collectors on the given registerer,
// reusing already-registered collectors so repeated construction in tests
// does not panic.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "daily_story",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route, method and status code.",
		},
		[]string{"route", "method", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "daily_story",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	collectors := []prometheus.Collector{requestsTotal, requestDuration}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch collector.(type) {
				case *prometheus.CounterVec:
					requestsTotal = already.ExistingCollector.(*prometheus.CounterVec)
				case *prometheus.HistogramVec:
					requestDuration = already.ExistingCollector.(*prometheus.HistogramVec)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		requestsTotal:   requestsTotal,
		requestDuration: requestDuration,
	}
}

// Middleware records one observation per request under a low-cardinality
// route label.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil || m.requestsTotal == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			route := canonicalRoute(r.URL.Path)
			m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
			m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

// canonicalRoute folds request paths onto the handful of known routes so the
// label set stays bounded no matter what clients request.
func canonicalRoute(path string) string {
	switch {
	case path == "/api/story", path == "/api/story/generate", path == "/api/story/html":
		return path
	case strings.HasPrefix(path, "/api/"):
		return "/api/other"
	case path == "/healthz", path == "/metrics":
		return path
	default:
		return "/static"
	}
}
