//go:build integration

// Run with: go test -tags=integration -run Redis ./internal/middleware/...
package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func submitFrom(handler http.Handler, addr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/places/p1/reviews", nil)
	req.RemoteAddr = addr
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestRedisRateLimitStore_SharedAcrossInstances(t *testing.T) {
	client := startRedis(t)
	config := RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	// Two API instances with their own store values behind one Redis.
	first := RateLimiter(NewRedisRateLimitStore(client), config, IPKeyFunc(), nil)(ok)
	second := RateLimiter(NewRedisRateLimitStore(client), config, IPKeyFunc(), nil)(ok)

	for i, handler := range []http.Handler{first, second, first} {
		rr := submitFrom(handler, "203.0.113.5:1000")
		if rr.Code != http.StatusCreated {
			t.Fatalf("submission %d: expected 201, got %d", i+1, rr.Code)
		}
		if want := strconv.Itoa(2 - i); rr.Header().Get("X-RateLimit-Remaining") != want {
			t.Errorf("submission %d: expected remaining %s, got %q", i+1, want, rr.Header().Get("X-RateLimit-Remaining"))
		}
	}

	rr := submitFrom(second, "203.0.113.5:1000")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on the second instance, got %d", rr.Code)
	}
	retryAfter, err := strconv.Atoi(rr.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 || retryAfter > 60 {
		t.Errorf("expected Retry-After within the window, got %q", rr.Header().Get("Retry-After"))
	}

	if rr := submitFrom(second, "203.0.113.6:1000"); rr.Code != http.StatusCreated {
		t.Errorf("expected another client to be unaffected, got %d", rr.Code)
	}
}

func TestRedisRateLimitStore_KeysExpireWithWindow(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	store := NewRedisRateLimitStore(client)
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: 200 * time.Millisecond}
	key := "/places/{id}/reviews:203.0.113.9"

	if allowed, _, _ := store.Allow(ctx, key, config); !allowed {
		t.Fatal("expected the first submission to be allowed")
	}
	ttl, err := client.PTTL(ctx, redisRateLimitPrefix+key).Result()
	if err != nil {
		t.Fatalf("PTTL() error: %v", err)
	}
	if ttl <= 0 || ttl > config.WindowDuration {
		t.Errorf("expected the key to expire within the window, got ttl %v", ttl)
	}
	if allowed, _, _ := store.Allow(ctx, key, config); allowed {
		t.Fatal("expected the second submission to be blocked")
	}

	time.Sleep(300 * time.Millisecond)

	allowed, remaining, _ := store.Allow(ctx, key, config)
	if !allowed || remaining != 0 {
		t.Errorf("expected a fresh window, got allowed=%v remaining=%d", allowed, remaining)
	}
}
