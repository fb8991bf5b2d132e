package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/vibemap/internal/ranking"
	"github.com/onnwee/vibemap/internal/tracing"
	"github.com/onnwee/vibemap/internal/validate"
)

// RankingHandlers holds dependencies for ranking HTTP handlers.
type RankingHandlers struct {
	svc PlaceService
}

// NewRankingHandlers creates a new RankingHandlers instance.
func NewRankingHandlers(svc PlaceService) *RankingHandlers {
	return &RankingHandlers{svc: svc}
}

// GetRankings handles GET /rankings?occasion=&min_reviews=&cuisine=&search=.
// Without an occasion the response holds suggestions.
func (h *RankingHandlers) GetRankings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ranking.FilterState{
		Occasion: q.Get("occasion"),
		Cuisine:  q.Get("cuisine"),
		Search:   q.Get("search"),
	}
	if raw := strings.TrimSpace(q.Get("min_reviews")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeErrorCode(w, r, http.StatusBadRequest, ErrCodeValidation, "min_reviews must be a non-negative integer")
			return
		}
		filter.MinReviews = n
	}

	if msg := validateFilter(filter); msg != "" {
		writeErrorCode(w, r, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}

	outcome, err := h.svc.Rank(filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	tracing.SetAttributes(r.Context(),
		attribute.String("ranking.occasion", filter.Occasion),
		attribute.String("ranking.mode", string(outcome.Mode)),
	)
	writeJSON(w, r, http.StatusOK, toRankingResponse(outcome))
}

// validateFilter returns an error message, or "" when filter is acceptable.
func validateFilter(filter ranking.FilterState) string {
	if filter.MinReviews < 0 {
		return "min_reviews must be a non-negative integer"
	}
	if len([]rune(filter.Occasion)) > validate.MaxOccasionLength {
		return fmt.Sprintf("occasion must not exceed %d characters", validate.MaxOccasionLength)
	}
	if _, err := validate.SearchTerm(filter.Search); err != nil {
		return "search: " + err.Error()
	}
	return ""
}
