package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sizefit_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sizefit_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Search metrics
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sizefit_searches_total",
			Help: "Total number of size-constrained searches",
		},
		[]string{"outcome"}, // pass, fallback, error
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sizefit_search_duration_seconds",
			Help:    "Search duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"host"}, // api, batch
	)

	SearchProbes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sizefit_search_probes",
			Help:    "Encode probes performed per search",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 48},
		},
	)

	ImageBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sizefit_image_bytes",
			Help:    "Input/output image bytes",
			Buckets: []float64{1024, 10240, 102400, 512000, 1048576, 5242880, 10485760, 52428800},
		},
		[]string{"direction"}, // input, output
	)

	// Queue/Pool metrics
	WorkerPoolQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sizefit_worker_pool_queue_size",
			Help: "Current number of jobs in the worker pool queue",
		},
	)

	WorkerPoolActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sizefit_worker_pool_active_jobs",
			Help: "Current number of active search jobs",
		},
	)

	// Rate limiting metrics
	RateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sizefit_rate_limit_exceeded_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
		[]string{"ip_prefix"}, // First octet for privacy
	)

	// Concurrency metrics
	ConcurrentRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sizefit_concurrent_requests",
			Help: "Current number of concurrent requests being processed",
		},
	)

	ConcurrencyLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sizefit_concurrency_limit_exceeded_total",
			Help: "Total number of requests rejected due to concurrency limit",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, duration float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordSearch records one completed search
func RecordSearch(outcome, host string, duration float64, probes, inputBytes, outputBytes int) {
	SearchesTotal.WithLabelValues(outcome).Inc()
	SearchDuration.WithLabelValues(host).Observe(duration)
	if probes > 0 {
		SearchProbes.Observe(float64(probes))
	}
	ImageBytes.WithLabelValues("input").Observe(float64(inputBytes))
	ImageBytes.WithLabelValues("output").Observe(float64(outputBytes))
}

// UpdateWorkerPoolMetrics updates worker pool gauges
func UpdateWorkerPoolMetrics(queueSize, activeJobs int) {
	WorkerPoolQueueSize.Set(float64(queueSize))
	WorkerPoolActiveJobs.Set(float64(activeJobs))
}

// RecordRateLimitExceeded records a rate limit rejection
func RecordRateLimitExceeded(ipPrefix string) {
	RateLimitExceeded.WithLabelValues(ipPrefix).Inc()
}

// UpdateConcurrency updates the concurrent request gauge
func UpdateConcurrency(count int) {
	ConcurrentRequests.Set(float64(count))
}

// RecordConcurrencyLimitExceeded records a concurrency limit rejection
func RecordConcurrencyLimitExceeded() {
	ConcurrencyLimitExceeded.Inc()
}
