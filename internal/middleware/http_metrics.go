package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RouteUnmatched is the route label used for paths outside the API surface.
const RouteUnmatched = "unmatched"

// staticRoutes are reported as-is.
var staticRoutes = map[string]bool{
	"/":            true,
	"/places":      true,
	"/cuisines":    true,
	"/rankings":    true,
	"/rankings/ws": true,
	"/health":      true,
	"/ready":       true,
	"/metrics":     true,
}

// normalizePath maps a request path to its route template so that place IDs
// do not become label values: /places/123/reviews -> /places/{id}/reviews.
// Unknown paths collapse into RouteUnmatched.
func normalizePath(path string) string {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if staticRoutes[path] {
		return path
	}

	parts := strings.Split(path, "/")
	if len(parts) >= 3 && parts[1] == "places" && parts[2] != "" {
		switch {
		case len(parts) == 3:
			return "/places/{id}"
		case len(parts) == 4 && parts[3] == "reviews":
			return "/places/{id}/reviews"
		}
	}

	return RouteUnmatched
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (mrw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return mrw.ResponseWriter
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, response size, in-flight requests, and request counts.
// Health check endpoints (/health, /ready) and the websocket endpoint are
// excluded: health checks would dominate the counts and websocket durations measure
// connection lifetime rather than request latency.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := normalizePath(r.URL.Path)
			if route == "/health" || route == "/ready" || route == "/rankings/ws" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			metrics.httpRequestsInFlight.Inc()
			defer metrics.httpRequestsInFlight.Dec()

			mrw := newMetricsResponseWriter(w)
			next.ServeHTTP(mrw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				route,
				strconv.Itoa(mrw.statusCode),
				time.Since(start).Seconds(),
				mrw.size,
			)
		})
	}
}
