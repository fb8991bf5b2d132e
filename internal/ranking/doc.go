// Package ranking turns a flat collection of reviews into per-place,
// per-occasion statistics and turns those statistics plus live filter state
// into an ordered list of candidate places.
//
// Basic Usage:
//
//	// Load limits (typically at startup)
//	limits, err := ranking.LoadLimits("configs/ranking.limits.json")
//	if err != nil {
//		log.Warn("using default limits", "error", err)
//	}
//
//	// Aggregate the full review set whenever it changes
//	stats := ranking.Aggregate(reviews)
//
//	// Rank on every filter change
//	engine := ranking.NewEngine(limits, nil)
//	outcome := engine.Rank(places, stats, ranking.FilterState{
//		Occasion:   "date night",
//		MinReviews: 2,
//		Cuisine:    "pizza",
//	})
//
// Outcomes:
//
// Rank always returns an Outcome. When no occasion is chosen, or when no
// candidate has enough reviews for the chosen occasion, the outcome carries
// random suggestions drawn from located candidates instead of ranked
// entries. Empty results are never errors.
//
// The package performs no I/O and holds no shared mutable state apart from
// the engine's optional random source, which is guarded by a mutex.
package ranking
