// Package metrics holds the Prometheus collectors shared by the HTTP
// middleware and the meal-plan workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "validation_error"
	OutcomeFailed        = "generation_failed"
	OutcomeMisconfigured = "misconfigured"
	OutcomeStoreError    = "store_error"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealplanner_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mealplanner_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	planGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mealplanner_plan_generations_total",
			Help: "Meal plan generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Provider calls routinely take tens of seconds.
	providerDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mealplanner_provider_duration_seconds",
			Help:    "Latency of AI provider calls in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90, 120},
		},
	)
)

// ObserveHTTP records one served request. path must be a route pattern,
// never a raw URL, to keep label cardinality bounded.
func ObserveHTTP(method, path string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordGeneration counts one generate request by outcome.
func RecordGeneration(outcome string) {
	planGenerationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveProviderCall records the latency of one provider round trip.
func ObserveProviderCall(d time.Duration) {
	providerDuration.Observe(d.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
