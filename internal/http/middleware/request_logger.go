package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// RequestLogger emits structured logs for every HTTP request, tagging
// provider-scoped routes with the provider they touched.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = uuid.NewString()
			}
			logger.Info("request started",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
				"remote_ip", r.RemoteAddr,
			)
			next.ServeHTTP(w, r)

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", reqID,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if providerID := routeProviderID(r); providerID != "" {
				fields = append(fields, "provider_id", providerID)
			}
			logger.Info("request completed", fields...)
		})
	}
}

// routeProviderID reads the {providerID} route parameter once routing has
// resolved it; empty for public routes.
func routeProviderID(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.URLParam("providerID")
}
