// Package place provides the place model, cuisine helpers, and repositories
// for the points of interest shown on the map.
package place

import (
	"sort"
	"strings"
)

// CuisineDelimiter separates multiple cuisines in a single cuisine value
// (OpenStreetMap convention, e.g. "italian;pizza").
const CuisineDelimiter = ";"

// Point represents a geographic coordinate with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a point of interest imported from external geographic data.
// Every field except ID is optional. Places are immutable once loaded.
type Place struct {
	ID      string   `json:"id"`
	OSMID   string   `json:"osm_id,omitempty"`
	Name    *string  `json:"name,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Cuisine *string  `json:"cuisine,omitempty"`
	Address *string  `json:"address,omitempty"`
}

// Location returns the place coordinates and whether both are present.
func (p *Place) Location() (Point, bool) {
	if p.Lat == nil || p.Lng == nil {
		return Point{}, false
	}
	return Point{Lat: *p.Lat, Lng: *p.Lng}, true
}

// HasLocation reports whether both latitude and longitude are present.
func (p *Place) HasLocation() bool {
	return p.Lat != nil && p.Lng != nil
}

// DisplayName returns the place name or a placeholder for unnamed places.
func (p *Place) DisplayName() string {
	if p.Name == nil || *p.Name == "" {
		return "Unnamed place"
	}
	return *p.Name
}

// Cuisines returns the normalized cuisine segments of the place.
func (p *Place) Cuisines() []string {
	if p.Cuisine == nil {
		return nil
	}
	return SplitCuisines(*p.Cuisine)
}

// ServesCuisine reports whether one of the place's cuisine segments equals
// the given (already normalized) cuisine.
func (p *Place) ServesCuisine(cuisine string) bool {
	for _, c := range p.Cuisines() {
		if c == cuisine {
			return true
		}
	}
	return false
}

// SplitCuisines splits a raw cuisine value on the delimiter, lowercasing and
// trimming each segment. Empty segments are dropped.
func SplitCuisines(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(strings.ToLower(raw), CuisineDelimiter)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// DistinctCuisines returns the sorted set of cuisine segments across places.
func DistinctCuisines(places []*Place) []string {
	seen := make(map[string]struct{})
	for _, p := range places {
		for _, c := range p.Cuisines() {
			seen[c] = struct{}{}
		}
	}

	cuisines := make([]string, 0, len(seen))
	for c := range seen {
		cuisines = append(cuisines, c)
	}
	sort.Strings(cuisines)
	return cuisines
}

// CountLocated returns how many places have both coordinates.
func CountLocated(places []*Place) int {
	n := 0
	for _, p := range places {
		if p.HasLocation() {
			n++
		}
	}
	return n
}
