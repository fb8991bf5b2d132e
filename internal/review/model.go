// Package review provides the occasion review model, score computation,
// submission validation, and repositories.
package review

import (
	"errors"
	"fmt"
	"time"

	"github.com/onnwee/vibemap/internal/validate"
)

// Sub-score bounds (inclusive).
const (
	MinSubScore = 1
	MaxSubScore = 5
)

// Validation errors for review submission.
var (
	ErrInvalidScore    = errors.New("sub-scores must be integers between 1 and 5")
	ErrMissingOccasion = errors.New("occasion is required")
	ErrInvalidText     = errors.New("invalid review text")
	ErrMissingPlaceID  = errors.New("place_id is required")
	ErrUnknownPlace    = errors.New("review references an unknown place")
)

// Review is a user-submitted rating of a place for one occasion.
// Reviews are immutable once created.
type Review struct {
	ID        string    `json:"id"`
	PlaceID   string    `json:"place_id"`
	Occasion  string    `json:"occasion"`
	Food      int       `json:"food"`
	Value     int       `json:"value"`
	Vibe      int       `json:"vibe"`
	GoToOrder *string   `json:"go_to_order,omitempty"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Score returns the review's quality score: the mean of food, value, and vibe.
// The result lies in [1,5] for validated reviews.
func (r *Review) Score() float64 {
	return Score(r.Food, r.Value, r.Vibe)
}

// Score computes (food + value + vibe) / 3.
func Score(food, value, vibe int) float64 {
	return float64(food+value+vibe) / 3
}

// NewReview is the payload accepted for review creation.
// Sub-scores are pointers so that absent values can be told apart from zero.
type NewReview struct {
	PlaceID   string  `json:"place_id"`
	Occasion  string  `json:"occasion"`
	Food      *int    `json:"food"`
	Value     *int    `json:"value"`
	Vibe      *int    `json:"vibe"`
	GoToOrder *string `json:"go_to_order,omitempty"`
	Note      *string `json:"note,omitempty"`
}

// Validate checks the submission and returns a normalized copy:
// occasion and optional texts trimmed, blank optional texts dropped.
func (n NewReview) Validate() (NewReview, error) {
	if n.PlaceID == "" {
		return NewReview{}, ErrMissingPlaceID
	}

	for _, s := range []*int{n.Food, n.Value, n.Vibe} {
		if s == nil || *s < MinSubScore || *s > MaxSubScore {
			return NewReview{}, ErrInvalidScore
		}
	}

	occasion, err := validate.Occasion(n.Occasion)
	if errors.Is(err, validate.ErrEmpty) {
		return NewReview{}, ErrMissingOccasion
	}
	if err != nil {
		return NewReview{}, fmt.Errorf("%w: occasion: %w", ErrInvalidText, err)
	}

	goTo, err := validate.GoToOrder(n.GoToOrder)
	if err != nil {
		return NewReview{}, fmt.Errorf("%w: go_to_order: %w", ErrInvalidText, err)
	}
	note, err := validate.Note(n.Note)
	if err != nil {
		return NewReview{}, fmt.Errorf("%w: note: %w", ErrInvalidText, err)
	}

	out := n
	out.Occasion = occasion
	out.GoToOrder = goTo
	out.Note = note
	return out, nil
}

// Build turns a validated submission into a Review with the given ID and timestamp.
func (n NewReview) Build(id string, createdAt time.Time) *Review {
	return &Review{
		ID:        id,
		PlaceID:   n.PlaceID,
		Occasion:  n.Occasion,
		Food:      *n.Food,
		Value:     *n.Value,
		Vibe:      *n.Vibe,
		GoToOrder: n.GoToOrder,
		Note:      n.Note,
		CreatedAt: createdAt,
	}
}
