// Package metrics exposes Prometheus collectors for the order crawler.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlerProbesTotal             *prometheus.CounterVec
	crawlerProbeDurationSeconds    *prometheus.HistogramVec
	crawlerCasesPersistedTotal     *prometheus.CounterVec
	crawlerDocumentsTotal          *prometheus.CounterVec
	crawlerCaseTypesExhaustedTotal *prometheus.CounterVec
	crawlerRateLimitDelaysSeconds  prometheus.Histogram
	httpRequestsTotal              *prometheus.CounterVec
	httpRequestDurationSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlerProbesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_probes_total",
				Help: "Total number of case lookups, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlerProbeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_probe_duration_seconds",
				Help:    "Histogram of case lookup latencies, including order extraction.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		)

		crawlerCasesPersistedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_cases_persisted_total",
				Help: "Total number of case records handed to the store, labeled by result.",
			},
			[]string{"result"},
		)

		crawlerDocumentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_documents_total",
				Help: "Total number of order documents processed, labeled by status.",
			},
			[]string{"status"},
		)

		crawlerCaseTypesExhaustedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_case_types_exhausted_total",
				Help: "Number of (year, case type) enumerations that reached their stop condition.",
			},
			[]string{"case_type"},
		)

		crawlerRateLimitDelaysSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "crawler_rate_limit_delays_seconds",
				Help:    "Histogram of portal rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method, route and code.",
			},
			[]string{"method", "route", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProbe records one case lookup and how long it took.
func ObserveProbe(outcome string, duration time.Duration) {
	Init()
	crawlerProbesTotal.WithLabelValues(outcome).Inc()
	crawlerProbeDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObservePersist counts a store insert.
func ObservePersist(ok bool) {
	Init()
	result := "success"
	if !ok {
		result = "failure"
	}
	crawlerCasesPersistedTotal.WithLabelValues(result).Inc()
}

// ObserveDocument counts an order row by its document status.
func ObserveDocument(status string) {
	Init()
	crawlerDocumentsTotal.WithLabelValues(status).Inc()
}

// ObserveTypeExhausted counts a finished case type enumeration.
func ObserveTypeExhausted(caseType string) {
	Init()
	crawlerCaseTypesExhaustedTotal.WithLabelValues(caseType).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	crawlerRateLimitDelaysSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
