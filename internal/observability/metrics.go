package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline outcomes recorded by EvaluationOutcomes.
const (
	OutcomeResponded     = "responded"
	OutcomeRejectedInput = "rejected_input"
	OutcomeEvaluationErr = "evaluation_failed"
	OutcomeBlobStoreErr  = "blob_store_failed"
)

var (
	registerOnce        sync.Once
	apiRequestsTotal    *prometheus.CounterVec
	apiLatencySeconds   *prometheus.HistogramVec
	apiErrorsTotal      *prometheus.CounterVec
	evaluationOutcomes  *prometheus.CounterVec
	extractionSeconds   *prometheus.HistogramVec
	persistenceFailures prometheus.Counter
	uploadSizeBytes     prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the evaluation pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookeval",
			Name:      "http_requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookeval",
			Name:      "http_latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookeval",
			Name:      "http_errors_total",
			Help:      "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		evaluationOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookeval",
			Subsystem: "pipeline",
			Name:      "outcomes_total",
			Help:      "Evaluation pipeline runs by terminal outcome and input type.",
		}, []string{"outcome", "input_type"})

		extractionSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookeval",
			Subsystem: "pipeline",
			Name:      "extraction_seconds",
			Help:      "Time spent classifying and extracting uploads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"})

		persistenceFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookeval",
			Subsystem: "pipeline",
			Name:      "persistence_failures_total",
			Help:      "Evaluations returned to the caller but not saved.",
		})

		uploadSizeBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bookeval",
			Subsystem: "pipeline",
			Name:      "upload_size_bytes",
			Help:      "Size of accepted uploads.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			evaluationOutcomes,
			extractionSeconds,
			persistenceFailures,
			uploadSizeBytes,
		)
	})
}

func prometheusGatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
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

// EvaluationOutcomes counts pipeline runs by outcome.
func EvaluationOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationOutcomes
}

// ExtractionLatency observes extraction time per detected format.
func ExtractionLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return extractionSeconds
}

// PersistenceFailures counts evaluations that could not be saved.
func PersistenceFailures() prometheus.Counter {
	RegisterMetrics()
	return persistenceFailures
}

// UploadSize observes accepted upload sizes.
func UploadSize() prometheus.Histogram {
	RegisterMetrics()
	return uploadSizeBytes
}
