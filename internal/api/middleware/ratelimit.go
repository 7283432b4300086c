package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/ratinggame/internal/api/apierr"
	"github.com/mcoot/ratinggame/internal/middleware"
	"github.com/mcoot/ratinggame/internal/observability"
	"github.com/mcoot/ratinggame/internal/services/limiter"
)

// RateLimit rejects callers that exceed the limiter's window with 429. Tracker
// failures are logged and the request is let through.
func RateLimit(rl *limiter.RateLimiter, metrics *observability.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := ClientIP(r)

			limited, err := rl.IsLimited(r.Context(), addr)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					slog.String("addr", addr),
					slog.String("error", err.Error()),
				)
			}
			if limited {
				metrics.RateLimited()
				apierr.WriteError(w, apierr.NewTooManyRequestsError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records request counts and latencies labelled by route template. It must
// be installed with mux.Router.Use so the matched route is known. Wrapped around the
// router's not-found and method-not-allowed handlers it labels requests "unmatched".
func Metrics(metrics *observability.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			metrics.ObserveRequest(r.Method, route, wrapped.Status(), time.Since(start))
		})
	}
}
