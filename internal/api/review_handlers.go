package api

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/vibemap/internal/ranking"
	"github.com/onnwee/vibemap/internal/review"
)

// maxReviewBodyBytes bounds the review submission body.
const maxReviewBodyBytes = 16 << 10

// CreateReviewRequest represents the request body for submitting a review.
// The place comes from the URL path.
type CreateReviewRequest struct {
	Occasion  string  `json:"occasion"`
	Food      *int    `json:"food"`
	Value     *int    `json:"value"`
	Vibe      *int    `json:"vibe"`
	GoToOrder *string `json:"go_to_order,omitempty"`
	Note      *string `json:"note,omitempty"`
}

// ReviewListResponse is the body of GET /places/{id}/reviews.
type ReviewListResponse struct {
	Reviews []*review.Review          `json:"reviews"`
	Count   int                       `json:"count"`
	BestFor []ranking.OccasionSummary `json:"best_for"`
}

// ReviewHandlers holds dependencies for review HTTP handlers.
type ReviewHandlers struct {
	svc PlaceService
}

// NewReviewHandlers creates a new ReviewHandlers instance.
func NewReviewHandlers(svc PlaceService) *ReviewHandlers {
	return &ReviewHandlers{svc: svc}
}

// ListReviews handles GET /places/{id}/reviews - the newest reviews for a
// place and its per-occasion summary.
func (h *ReviewHandlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.PlaceDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	reviews := detail.Recent
	if reviews == nil {
		reviews = []*review.Review{}
	}
	writeJSON(w, r, http.StatusOK, ReviewListResponse{
		Reviews: reviews,
		Count:   detail.ReviewCount,
		BestFor: nonNilSummaries(detail.BestFor),
	})
}

// CreateReview handles POST /places/{id}/reviews.
func (h *ReviewHandlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReviewBodyBytes)

	var req CreateReviewRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeErrorCode(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	created, err := h.svc.SubmitReview(r.Context(), review.NewReview{
		PlaceID:   r.PathValue("id"),
		Occasion:  req.Occasion,
		Food:      req.Food,
		Value:     req.Value,
		Vibe:      req.Vibe,
		GoToOrder: req.GoToOrder,
		Note:      req.Note,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, created)
}
