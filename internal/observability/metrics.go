package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	transitionsTotal      *prometheus.CounterVec
	transitionRejections  *prometheus.CounterVec
	submissionEventsTotal *prometheus.CounterVec
	homeworkCacheLookups  *prometheus.CounterVec
	sseClientsActive      prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mathla_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mathla_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mathla_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		transitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mathla_submission_transitions_total",
			Help: "Confirmed submission status transitions.",
		}, []string{"action", "to"})

		transitionRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mathla_submission_rejections_total",
			Help: "Transitions rejected by lifecycle policy, by reason code.",
		}, []string{"action", "code"})

		submissionEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mathla_submission_events_total",
			Help: "Submission events delivered to the local broker.",
		}, []string{"type", "origin"})

		homeworkCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mathla_homework_cache_lookups_total",
			Help: "Homework overview cache lookups by result.",
		}, []string{"result"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mathla_sse_clients_active",
			Help: "Currently connected event stream clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			transitionsTotal,
			transitionRejections,
			submissionEventsTotal,
			homeworkCacheLookups,
			sseClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// TransitionsTotal counts confirmed transitions by action and target status.
func TransitionsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionsTotal
}

// TransitionRejections counts policy rejections by action and code.
func TransitionRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return transitionRejections
}

// SubmissionEventsTotal counts events by type and origin (local or remote).
func SubmissionEventsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionEventsTotal
}

// HomeworkCacheLookups counts cache hits and misses.
func HomeworkCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return homeworkCacheLookups
}

// SSEClientsActive tracks open event streams.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}
