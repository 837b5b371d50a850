package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dfmorales/facturas-backend/pkg/metrics"
)

// Metrics observes completed requests using the chi route pattern as the
// route label, so path parameters do not explode the cardinality.
func Metrics(recorder *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorded := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(recorded, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			recorder.Observe(r.Method, route, strconv.Itoa(recorded.status), time.Since(start))
		})
	}
}
