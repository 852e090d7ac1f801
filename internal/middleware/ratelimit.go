package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/meal-planner/internal/apperror"
	"github.com/sakif/meal-planner/internal/auth"
	"github.com/sakif/meal-planner/internal/ratelimit"
)

// Allower is the part of ratelimit.Limiter the middleware needs.
type Allower interface {
	Allow(ctx context.Context, key string) (ratelimit.Result, error)
}

var _ Allower = (*ratelimit.Limiter)(nil)

// RateLimit caps requests per client: the user id when signed in, else the
// client IP. It must run after auth.OptionalAuth and chi's RealIP.
//
// A limiter error lets the request through; an unavailable Redis must not
// take generation down with it.
func RateLimit(limiter Allower, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), clientKey(r))
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))

			if !res.Allowed {
				retry := max(int(time.Until(res.Reset).Seconds()+0.5), 1)
				h.Set("Retry-After", strconv.Itoa(retry))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = fmt.Fprintf(w, `{"success":false,"error":%q}`+"\n", apperror.RateLimited().Message)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if id := auth.UserIDFromContext(r.Context()); id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
