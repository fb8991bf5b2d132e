package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/onnwee/vibemap/internal/idempotency"
)

// IdempotencyKeyHeader is the HTTP header name for idempotency keys.
const IdempotencyKeyHeader = "Idempotency-Key"

// IdempotencyReplayedHeader is set on responses served from a stored record.
const IdempotencyReplayedHeader = "Idempotent-Replayed"

// maxFingerprintBytes bounds how much of the body is hashed. Larger bodies
// skip idempotency and are left to the handler to reject.
const maxFingerprintBytes = 64 << 10

// idempotencyResponseWriter captures the response for storage.
type idempotencyResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	written    bool
}

func (w *idempotencyResponseWriter) WriteHeader(statusCode int) {
	if !w.written {
		w.statusCode = statusCode
		w.written = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.statusCode = http.StatusOK
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.body.Write(b[:n])
	return n, err
}

// Idempotency replays stored responses for requests carrying an
// Idempotency-Key header. The header is optional: requests without it pass
// through untouched. A key reused with a different body is rejected with 422.
// Only 2xx responses are stored, so failed attempts can be retried.
func Idempotency(repo idempotency.Repository, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if err := idempotency.ValidateKey(key); err != nil {
				code, message := "invalid_idempotency_key", "Invalid Idempotency-Key format"
				if errors.Is(err, idempotency.ErrKeyTooLong) {
					code, message = "idempotency_key_too_long", "Idempotency-Key exceeds maximum length of 64 characters"
				}
				writeMiddlewareError(w, r.Context(), http.StatusBadRequest, code, message)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxFingerprintBytes+1))
			if err != nil {
				writeMiddlewareError(w, r.Context(), http.StatusBadRequest, "bad_request", "Failed to read request body")
				return
			}
			r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), r.Body))
			if len(body) > maxFingerprintBytes {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			scoped := idempotency.ScopedKey(r.Method, r.URL.Path, key)
			fingerprint := idempotency.Fingerprint(body)

			existing, err := repo.Get(ctx, scoped)
			switch {
			case err == nil:
				if existing.Fingerprint != fingerprint {
					writeMiddlewareError(w, ctx, http.StatusUnprocessableEntity, "idempotency_key_reused",
						"Idempotency-Key was already used with a different request body")
					return
				}
				logger.InfoContext(ctx, "replaying stored response", "idempotency_key", key, "status", existing.StatusCode)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(IdempotencyReplayedHeader, "true")
				w.WriteHeader(existing.StatusCode)
				_, _ = io.WriteString(w, existing.Body)
				return
			case !errors.Is(err, idempotency.ErrKeyNotFound):
				// Store unavailable: serve the request without replay protection.
				logger.ErrorContext(ctx, "failed to check idempotency key", "idempotency_key", key, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			capture := &idempotencyResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			if capture.statusCode < 200 || capture.statusCode >= 300 {
				return
			}
			record := &idempotency.Record{
				Key:         scoped,
				Fingerprint: fingerprint,
				StatusCode:  capture.statusCode,
				Body:        capture.body.String(),
			}
			if err := repo.Store(ctx, record); err != nil && !errors.Is(err, idempotency.ErrKeyExists) {
				logger.ErrorContext(ctx, "failed to store idempotency key", "idempotency_key", key, "error", err)
			}
		})
	}
}

// writeMiddlewareError writes the standard error envelope. The api package
// owns WriteError but imports this package, so the envelope is built here.
func writeMiddlewareError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	ctx = SetErrorCode(ctx, code)
	UpdateResponseContext(w, ctx)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, `{"error":{"code":"`+code+`","message":"`+message+`"}}`)
}
