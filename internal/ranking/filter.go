package ranking

import (
	"strings"

	"github.com/onnwee/vibemap/internal/place"
)

// Filter returns the places matching both the cuisine and the search term.
// An empty cuisine or search imposes no constraint. Input order is kept.
//
// cuisine must already be lowercased; search is matched case-insensitively
// against the place name.
func Filter(places []*place.Place, cuisine, search string) []*place.Place {
	needle := strings.ToLower(search)

	out := make([]*place.Place, 0, len(places))
	for _, p := range places {
		if cuisine != "" && !p.ServesCuisine(cuisine) {
			continue
		}
		if needle != "" && !nameContains(p, needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func nameContains(p *place.Place, lowerNeedle string) bool {
	if p.Name == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*p.Name), lowerNeedle)
}
