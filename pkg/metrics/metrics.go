package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Outbound REST calls
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openvidu_client_requests_total",
		Help: "Requests sent to the OpenVidu REST API, by method, endpoint and status.",
	}, []string{"method", "endpoint", "status"})
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "openvidu_client_request_duration_seconds",
		Help:    "Latency of requests sent to the OpenVidu REST API.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})
	TransportErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openvidu_client_transport_errors_total",
		Help: "Requests that failed below HTTP (dial, TLS, timeout).",
	}, []string{"method", "endpoint"})

	// Cache reconciliation
	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openvidu_client_fetches_total",
		Help: "Fetch calls by entity level and outcome (changed, unchanged, error).",
	}, []string{"level", "outcome"})
	Invalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "openvidu_client_invalidations_total",
		Help: "Cached entities flagged invalid, by entity level.",
	}, []string{"level"})
	TrackedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "openvidu_client_tracked_sessions",
		Help: "Sessions tracked by the most recently reconciled client.",
	})
)

// ObserveRequest records one completed HTTP exchange
func ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	RequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// ObserveTransportError records a request that never produced a response
func ObserveTransportError(method, endpoint string) {
	TransportErrors.WithLabelValues(method, endpoint).Inc()
}

// ObserveFetch records the outcome of a fetch at the given level
func ObserveFetch(level string, changed bool, err error) {
	outcome := "unchanged"
	switch {
	case err != nil:
		outcome = "error"
	case changed:
		outcome = "changed"
	}
	Fetches.WithLabelValues(level, outcome).Inc()
}

// Handler exposes the default registry, for binaries that serve /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
