package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/meal-planner/internal/metrics"
)

// Metrics records request counts and latency per route pattern.
//
// The label is chi's matched pattern ("/api/meal-plan/{sessionId}"), never
// the raw path, so session ids do not explode label cardinality. Requests
// that match no route are grouped under "unmatched".
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		next.ServeHTTP(wrapped, r)

		metrics.ObserveHTTP(r.Method, routePattern(r), wrapped.statusCode, time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}
