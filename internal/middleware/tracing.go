package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// TraceIDHeader carries the trace ID of a traced request back to the client.
const TraceIDHeader = "X-Trace-ID"

// Tracing creates HTTP middleware that instruments requests with OpenTelemetry spans.
// Trace context is propagated with W3C Trace Context headers (traceparent, tracestate).
//
// Span names use the normalized route ("GET /places/{id}/reviews") so that
// place IDs do not leak into span names. Sampled or not, a request with a
// valid span context gets its trace ID echoed in TraceIDHeader, which Logging
// adds to the access log.
//
// The middleware should be placed in the middleware chain after RequestID.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		traced := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if traceID := GetTraceID(r); traceID != "" {
				w.Header().Set(TraceIDHeader, traceID)
			}
			next.ServeHTTP(w, r)
		})
		return otelhttp.NewHandler(traced, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + normalizePath(r.URL.Path)
			}),
		)
	}
}

// GetTraceID extracts the trace ID from the request context.
// Returns empty string if no trace is active.
func GetTraceID(r *http.Request) string {
	spanCtx := trace.SpanContextFromContext(r.Context())
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}
