package api

import (
	"net/http"

	"github.com/onnwee/vibemap/internal/middleware"
)

// RouterConfig wires handlers and per-route middleware.
type RouterConfig struct {
	Service        PlaceService
	Health         *HealthHandlers
	MetricsHandler http.Handler // served at /metrics when set
	AllowedOrigins []string

	// ReviewLimiter wraps review submission only. Optional.
	ReviewLimiter func(http.Handler) http.Handler

	// ReviewIdempotency replays review submissions retried with the same
	// Idempotency-Key. Optional; runs inside ReviewLimiter.
	ReviewIdempotency func(http.Handler) http.Handler
}

// NewRouter returns the route table of the API.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	places := NewPlaceHandlers(cfg.Service)
	reviews := NewReviewHandlers(cfg.Service)
	rankings := NewRankingHandlers(cfg.Service)
	rankingWS := NewRankingWebSocketHandlers(cfg.Service, cfg.AllowedOrigins)

	createReview := http.Handler(http.HandlerFunc(reviews.CreateReview))
	if cfg.ReviewIdempotency != nil {
		createReview = cfg.ReviewIdempotency(createReview)
	}
	if cfg.ReviewLimiter != nil {
		createReview = cfg.ReviewLimiter(createReview)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /places", places.ListPlaces)
	mux.HandleFunc("GET /places/{id}", places.GetPlace)
	mux.HandleFunc("GET /places/{id}/reviews", reviews.ListReviews)
	mux.Handle("POST /places/{id}/reviews", createReview)
	mux.HandleFunc("GET /cuisines", places.ListCuisines)
	mux.HandleFunc("GET /rankings", rankings.GetRankings)
	mux.HandleFunc("GET /rankings/ws", rankingWS.StreamRankings)

	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.Health)
		mux.HandleFunc("GET /ready", cfg.Health.Ready)
	}
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
	})
	return mux
}
