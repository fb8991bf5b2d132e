package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/vibemap/internal/geo"
	"github.com/onnwee/vibemap/internal/place"
	"github.com/onnwee/vibemap/internal/ranking"
	"github.com/onnwee/vibemap/internal/review"
	"github.com/onnwee/vibemap/internal/session"
)

// PlaceHandlers holds dependencies for place HTTP handlers.
type PlaceHandlers struct {
	svc PlaceService
}

// NewPlaceHandlers creates a new PlaceHandlers instance.
func NewPlaceHandlers(svc PlaceService) *PlaceHandlers {
	return &PlaceHandlers{svc: svc}
}

// PlaceListResponse is the body of GET /places.
type PlaceListResponse struct {
	Places []PlaceResponse `json:"places"`
	Status session.Status  `json:"status"`
}

// PlaceDetailResponse is the body of GET /places/{id}.
type PlaceDetailResponse struct {
	Place       PlaceResponse             `json:"place"`
	ReviewCount int                       `json:"review_count"`
	BestFor     []ranking.OccasionSummary `json:"best_for"`
}

// CuisineListResponse is the body of GET /cuisines.
type CuisineListResponse struct {
	Cuisines []string `json:"cuisines"`
}

// ListPlaces handles GET /places - all loaded places with load counts.
// An optional geohash query parameter keeps only located places inside that
// cell; cells longer than the public precision are truncated.
func (h *PlaceHandlers) ListPlaces(w http.ResponseWriter, r *http.Request) {
	cell := ""
	if raw := r.URL.Query().Get("geohash"); raw != "" {
		cell = geo.RoundGeohash(raw, geo.DefaultPrecision)
		if cell == "" {
			writeErrorCode(w, r, http.StatusBadRequest, ErrCodeValidation, "geohash contains invalid characters")
			return
		}
	}

	places, err := h.svc.Places()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status, err := h.svc.Status()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := toPlaceResponses(places)
	if cell != "" {
		inCell := resp[:0]
		for _, p := range resp {
			if p.Geohash != "" && geo.InCell(p.Geohash, cell) {
				inCell = append(inCell, p)
			}
		}
		resp = inCell
	}

	writeJSON(w, r, http.StatusOK, PlaceListResponse{
		Places: resp,
		Status: status,
	})
}

// GetPlace handles GET /places/{id}.
func (h *PlaceHandlers) GetPlace(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.PlaceDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, PlaceDetailResponse{
		Place:       toPlaceResponse(detail.Place),
		ReviewCount: detail.ReviewCount,
		BestFor:     nonNilSummaries(detail.BestFor),
	})
}

// ListCuisines handles GET /cuisines - the sorted distinct cuisine list.
func (h *PlaceHandlers) ListCuisines(w http.ResponseWriter, r *http.Request) {
	cuisines, err := h.svc.Cuisines()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if cuisines == nil {
		cuisines = []string{}
	}
	writeJSON(w, r, http.StatusOK, CuisineListResponse{Cuisines: cuisines})
}

func nonNilSummaries(s []ranking.OccasionSummary) []ranking.OccasionSummary {
	if s == nil {
		return []ranking.OccasionSummary{}
	}
	return s
}

// writeServiceError maps domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotLoaded):
		writeErrorCode(w, r, http.StatusServiceUnavailable, ErrCodeNotReady, "Place data is still loading")
	case errors.Is(err, place.ErrPlaceNotFound), errors.Is(err, review.ErrUnknownPlace):
		writeErrorCode(w, r, http.StatusNotFound, ErrCodeNotFound, "Place not found")
	case errors.Is(err, review.ErrInvalidScore),
		errors.Is(err, review.ErrMissingOccasion),
		errors.Is(err, review.ErrInvalidText),
		errors.Is(err, review.ErrMissingPlaceID):
		writeErrorCode(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
		writeErrorCode(w, r, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
	}
}
