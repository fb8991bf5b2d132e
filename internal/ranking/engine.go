package ranking

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/onnwee/vibemap/internal/place"
)

// Engine composes filtering, ranking and suggestion selection into a single
// entry point. It is safe for concurrent use.
type Engine struct {
	limits Limits

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewEngine creates an Engine. A nil limits uses DefaultLimits; a nil rng
// uses the global random source.
func NewEngine(limits *Limits, rng *rand.Rand) *Engine {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Engine{limits: *limits, rng: rng}
}

// Limits returns the limits the engine was built with.
func (e *Engine) Limits() Limits {
	return e.limits
}

// Normalize returns filter with the cuisine lowercased and trimmed, the
// search term trimmed and a negative MinReviews clamped to 0. The occasion
// is kept verbatim.
func Normalize(filter FilterState) FilterState {
	filter.Cuisine = strings.ToLower(strings.TrimSpace(filter.Cuisine))
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.MinReviews < 0 {
		filter.MinReviews = 0
	}
	return filter
}

// Rank computes an Outcome from a full snapshot of places and stats.
// Every call is a full recompute.
func (e *Engine) Rank(places []*place.Place, stats StatsMap, filter FilterState) *Outcome {
	filter = Normalize(filter)
	ctx := Context{
		Occasion:   filter.Occasion,
		Cuisine:    filter.Cuisine,
		Search:     filter.Search,
		MinReviews: filter.MinReviews,
	}

	candidates := Filter(places, filter.Cuisine, filter.Search)

	if filter.Occasion == "" {
		return Suggestions(ReasonNoOccasion, e.suggest(candidates), ctx)
	}

	entries := Rank(candidates, stats, filter.Occasion, filter.MinReviews, e.limits.TopN)
	if len(entries) == 0 {
		return Suggestions(ReasonNoRankedMatches, e.suggest(candidates), ctx)
	}
	return Ranked(entries, ctx)
}

func (e *Engine) suggest(candidates []*place.Place) []*place.Place {
	if e.rng == nil {
		return Suggest(candidates, e.limits.Suggestions, nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Suggest(candidates, e.limits.Suggestions, e.rng.Shuffle)
}
