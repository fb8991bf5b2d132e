package ranking

import (
	"fmt"

	"github.com/onnwee/vibemap/internal/place"
)

// Mode tags which variant an Outcome holds.
type Mode string

// Outcome modes.
const (
	ModeSuggestions Mode = "suggestions"
	ModeRanked      Mode = "ranked"
)

// Reason explains why an Outcome holds suggestions.
type Reason string

// Suggestion reasons.
const (
	ReasonNoOccasion      Reason = "no_occasion"
	ReasonNoRankedMatches Reason = "no_ranked_matches"
)

// FilterState is the live ranking query.
type FilterState struct {
	Occasion   string `json:"occasion"`
	MinReviews int    `json:"min_reviews"`
	Cuisine    string `json:"cuisine"`
	Search     string `json:"search"`
}

// Context carries the active filter labels so callers can explain a result.
type Context struct {
	Occasion   string `json:"occasion,omitempty"`
	Cuisine    string `json:"cuisine,omitempty"`
	Search     string `json:"search,omitempty"`
	MinReviews int    `json:"min_reviews"`
}

// Outcome is the result of one ranking call. Exactly one variant is set:
// Ranked outcomes carry Entries, suggestion outcomes carry a Reason and
// Suggestions.
type Outcome struct {
	Mode        Mode           `json:"mode"`
	Reason      Reason         `json:"reason,omitempty"`
	Entries     []Entry        `json:"entries,omitempty"`
	Suggestions []*place.Place `json:"suggestions,omitempty"`
	Context     Context        `json:"context"`
}

// Ranked returns a ranked outcome.
func Ranked(entries []Entry, ctx Context) *Outcome {
	return &Outcome{Mode: ModeRanked, Entries: entries, Context: ctx}
}

// Suggestions returns a suggestion outcome with the given reason.
func Suggestions(reason Reason, suggestions []*place.Place, ctx Context) *Outcome {
	return &Outcome{
		Mode:        ModeSuggestions,
		Reason:      reason,
		Suggestions: suggestions,
		Context:     ctx,
	}
}

// IsRanked reports whether the outcome holds ranked entries.
func (o *Outcome) IsRanked() bool {
	return o.Mode == ModeRanked
}

// Headline returns the caption shown above the result list.
func (o *Outcome) Headline() string {
	switch {
	case o.Mode == ModeRanked:
		return fmt.Sprintf("Top matches for %s", o.Context.Occasion)
	case o.Reason == ReasonNoRankedMatches:
		if o.Context.Cuisine != "" {
			return fmt.Sprintf("No reviewed matches yet for %s (%s)", o.Context.Occasion, o.Context.Cuisine)
		}
		return fmt.Sprintf("No reviewed matches yet for %s", o.Context.Occasion)
	default:
		return "Suggestions to explore"
	}
}
