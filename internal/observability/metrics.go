package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	evaluationsTotal     *prometheus.CounterVec
	paperRejectionsTotal *prometheus.CounterVec
	rendersTotal         *prometheus.CounterVec
	jobsInFlight         prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the viewer.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evalmate_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evalmate_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evalmate_api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evalmate_evaluations_total",
			Help: "Evaluations processed, by outcome.",
		}, []string{"outcome"})

		paperRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evalmate_paper_rejections_total",
			Help: "Uploaded papers rejected during intake.",
		}, []string{"reason"})

		rendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evalmate_renders_total",
			Help: "Rendered evaluation views, by format and state.",
		}, []string{"format", "state"})

		jobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evalmate_jobs_in_flight",
			Help: "Asynchronous evaluations currently running.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			evaluationsTotal,
			paperRejectionsTotal,
			rendersTotal,
			jobsInFlight,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Evaluations exposes the evaluation outcome counter.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// PaperRejections exposes the intake rejection counter.
func PaperRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return paperRejectionsTotal
}

// Renders exposes the render counter.
func Renders() *prometheus.CounterVec {
	RegisterMetrics()
	return rendersTotal
}

// JobsInFlight exposes the running job gauge.
func JobsInFlight() prometheus.Gauge {
	RegisterMetrics()
	return jobsInFlight
}
