package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/onnwee/vibemap/internal/idempotency"
)

// countingHandler creates a review-like 201 and counts invocations.
func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"call":%d}`, n)
	})
}

func postReview(h http.Handler, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_WithoutKeyPassesThrough(t *testing.T) {
	var calls int32
	h := Idempotency(idempotency.NewInMemoryRepository(), nil)(countingHandler(&calls, http.StatusCreated))

	postReview(h, "/places/p1/reviews", "", `{"food":5}`)
	postReview(h, "/places/p1/reviews", "", `{"food":5}`)

	if calls != 2 {
		t.Errorf("expected handler to run twice without a key, ran %d times", calls)
	}
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	var calls int32
	repo := idempotency.NewInMemoryRepository()
	h := Idempotency(repo, nil)(countingHandler(&calls, http.StatusCreated))

	first := postReview(h, "/places/p1/reviews", "retry-1", `{"food":5}`)
	second := postReview(h, "/places/p1/reviews", "retry-1", `{"food":5}`)

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated {
		t.Errorf("expected replayed status 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("expected replayed body %q, got %q", first.Body.String(), second.Body.String())
	}
	if second.Header().Get(IdempotencyReplayedHeader) != "true" {
		t.Error("expected replay header on second response")
	}
	if first.Header().Get(IdempotencyReplayedHeader) != "" {
		t.Error("first response must not be marked as replayed")
	}
}

func TestIdempotency_KeyScopedByPath(t *testing.T) {
	var calls int32
	h := Idempotency(idempotency.NewInMemoryRepository(), nil)(countingHandler(&calls, http.StatusCreated))

	postReview(h, "/places/p1/reviews", "same", `{"food":5}`)
	postReview(h, "/places/p2/reviews", "same", `{"food":5}`)

	if calls != 2 {
		t.Errorf("expected key reuse on another place to run the handler, ran %d times", calls)
	}
}

func TestIdempotency_DifferentBodyRejected(t *testing.T) {
	var calls int32
	h := Idempotency(idempotency.NewInMemoryRepository(), nil)(countingHandler(&calls, http.StatusCreated))

	postReview(h, "/places/p1/reviews", "k", `{"food":5}`)
	rec := postReview(h, "/places/p1/reviews", "k", `{"food":1}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"code":"idempotency_key_reused"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if calls != 1 {
		t.Errorf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdempotency_FailuresNotStored(t *testing.T) {
	var calls int32
	h := Idempotency(idempotency.NewInMemoryRepository(), nil)(countingHandler(&calls, http.StatusBadRequest))

	postReview(h, "/places/p1/reviews", "k", `{}`)
	postReview(h, "/places/p1/reviews", "k", `{}`)

	if calls != 2 {
		t.Errorf("expected failed responses to be retried, ran %d times", calls)
	}
}

func TestIdempotency_InvalidKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		wantCode string
	}{
		{name: "too long", key: strings.Repeat("k", idempotency.MaxKeyLength+1), wantCode: "idempotency_key_too_long"},
		{name: "whitespace", key: "has space", wantCode: "invalid_idempotency_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			h := Idempotency(idempotency.NewInMemoryRepository(), nil)(countingHandler(&calls, http.StatusCreated))
			rec := postReview(h, "/places/p1/reviews", tt.key, `{}`)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), `"code":"`+tt.wantCode+`"`) {
				t.Errorf("expected code %s, got %s", tt.wantCode, rec.Body.String())
			}
			if calls != 0 {
				t.Error("handler must not run for an invalid key")
			}
		})
	}
}

type failingRepo struct{}

func (failingRepo) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	return nil, errors.New("connection refused")
}

func (failingRepo) Store(ctx context.Context, record *idempotency.Record) error {
	return errors.New("connection refused")
}

func TestIdempotency_StoreUnavailable(t *testing.T) {
	var calls int32
	h := Idempotency(failingRepo{}, nil)(countingHandler(&calls, http.StatusCreated))

	rec := postReview(h, "/places/p1/reviews", "k", `{"food":5}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected request to be served, got %d", rec.Code)
	}
	if calls != 1 {
		t.Errorf("expected handler to run, ran %d times", calls)
	}
}

func TestIdempotency_HandlerSeesFullBody(t *testing.T) {
	var got string
	h := Idempotency(idempotency.NewInMemoryRepository(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		w.WriteHeader(http.StatusCreated)
	}))

	postReview(h, "/places/p1/reviews", "k", `{"occasion":"date night"}`)
	if got != `{"occasion":"date night"}` {
		t.Errorf("handler received %q", got)
	}
}
