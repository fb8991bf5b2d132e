package ranking

import (
	"github.com/onnwee/vibemap/internal/review"
)

// OccasionStat is the average score and review count for one
// (place, occasion) pair. It only exists for Count >= 1.
type OccasionStat struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// StatsMap maps place ID to occasion to statistics.
type StatsMap map[string]map[string]OccasionStat

// Lookup returns the stat for a place and occasion.
func (m StatsMap) Lookup(placeID, occasion string) (OccasionStat, bool) {
	byOccasion, ok := m[placeID]
	if !ok {
		return OccasionStat{}, false
	}
	s, ok := byOccasion[occasion]
	return s, ok
}

// ReviewCount returns the number of reviews aggregated for a place.
func (m StatsMap) ReviewCount(placeID string) int {
	total := 0
	for _, s := range m[placeID] {
		total += s.Count
	}
	return total
}

// Aggregate groups reviews by place then occasion and reduces each bucket to
// mean score and count. Keys are compared verbatim. The result does not
// depend on input order.
func Aggregate(reviews []*review.Review) StatsMap {
	type bucket struct {
		sum   float64
		count int
	}

	buckets := make(map[string]map[string]*bucket)
	for _, r := range reviews {
		byOccasion, ok := buckets[r.PlaceID]
		if !ok {
			byOccasion = make(map[string]*bucket)
			buckets[r.PlaceID] = byOccasion
		}
		b, ok := byOccasion[r.Occasion]
		if !ok {
			b = &bucket{}
			byOccasion[r.Occasion] = b
		}
		b.sum += r.Score()
		b.count++
	}

	stats := make(StatsMap, len(buckets))
	for placeID, byOccasion := range buckets {
		occStats := make(map[string]OccasionStat, len(byOccasion))
		for occasion, b := range byOccasion {
			occStats[occasion] = OccasionStat{
				Average: b.sum / float64(b.count),
				Count:   b.count,
			}
		}
		stats[placeID] = occStats
	}
	return stats
}

// OccasionSummary is one line of a place's "best for" summary.
type OccasionSummary struct {
	Occasion string  `json:"occasion"`
	Average  float64 `json:"average"`
	Count    int     `json:"count"`
}

// Summarize builds the per-occasion summary for one place's reviews. Lines
// follow the order in which each occasion first appears in reviews, so a
// newest-first input lists the most recently reviewed occasion first.
func Summarize(reviews []*review.Review) []OccasionSummary {
	index := make(map[string]int)
	sums := make([]float64, 0)
	out := make([]OccasionSummary, 0)

	for _, r := range reviews {
		i, ok := index[r.Occasion]
		if !ok {
			i = len(out)
			index[r.Occasion] = i
			out = append(out, OccasionSummary{Occasion: r.Occasion})
			sums = append(sums, 0)
		}
		sums[i] += r.Score()
		out[i].Count++
	}
	for i := range out {
		out[i].Average = sums[i] / float64(out[i].Count)
	}
	return out
}
