package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func TestRedisRateLimitStore_FailsOpenOnClosedClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	logs := &bytes.Buffer{}
	store := NewRedisRateLimitStore(client).WithMetrics(m).WithLogger(newTestLogger(logs))

	config := RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	handler := RateLimiter(store, config, IPKeyFunc(), m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/places/p1/reviews", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201 while the store is down, got %d", i+1, rr.Code)
		}
		if got := rr.Header().Get("X-RateLimit-Remaining"); got != "3" {
			t.Errorf("submission %d: expected full quota, got %q", i+1, got)
		}
	}

	errs := findMetric(t, reg, MetricRateLimitStoreErrors, nil)
	if errs == nil || errs.GetCounter().GetValue() != 5 {
		t.Errorf("expected 5 store errors, got %v", errs)
	}
	if got := counterValue(t, reg, MetricRateLimitBlocked, "/places/{id}/reviews"); got != 0 {
		t.Errorf("expected nothing blocked, got %v", got)
	}
	if !strings.Contains(logs.String(), "rate limit store unavailable") {
		t.Errorf("expected a store warning, got %q", logs.String())
	}
}

func TestRedisRateLimitStore_WithLoggerKeepsDefault(t *testing.T) {
	store := NewRedisRateLimitStore(redis.NewClient(&redis.Options{}))
	t.Cleanup(func() { _ = store.client.Close() })

	if store.WithLogger(nil).logger == nil {
		t.Error("expected a nil logger to keep the default")
	}
}
