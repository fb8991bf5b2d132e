package ranking

import (
	"math/rand/v2"

	"github.com/onnwee/vibemap/internal/place"
)

// ShuffleFunc permutes n elements through swap, like rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Suggest restricts candidates to places with both coordinates, shuffles
// them and returns the first n. A nil shuffle uses the global source.
func Suggest(candidates []*place.Place, n int, shuffle ShuffleFunc) []*place.Place {
	located := make([]*place.Place, 0, len(candidates))
	for _, p := range candidates {
		if p.HasLocation() {
			located = append(located, p)
		}
	}

	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	shuffle(len(located), func(i, j int) {
		located[i], located[j] = located[j], located[i]
	})

	if n >= 0 && len(located) > n {
		located = located[:n]
	}
	return located
}
