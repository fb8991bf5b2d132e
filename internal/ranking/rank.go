package ranking

import (
	"sort"

	"github.com/onnwee/vibemap/internal/place"
)

// Entry is a candidate place paired with its statistics for the selected occasion.
type Entry struct {
	Place   *place.Place `json:"place"`
	Average float64      `json:"average"`
	Count   int          `json:"count"`
}

// Rank keeps candidates that have a stat for occasion with at least
// minReviews reviews, sorts them by average descending and returns at most
// topN. Ties keep candidate order. A non-positive topN means no truncation.
func Rank(candidates []*place.Place, stats StatsMap, occasion string, minReviews, topN int) []Entry {
	entries := make([]Entry, 0)
	for _, p := range candidates {
		s, ok := stats.Lookup(p.ID, occasion)
		if !ok || s.Count < minReviews {
			continue
		}
		entries = append(entries, Entry{Place: p, Average: s.Average, Count: s.Count})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Average > entries[j].Average
	})

	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}
