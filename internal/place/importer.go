package place

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Import formats recognized by ParseImport.
const (
	FormatOverpass = "overpass"
	FormatGeoJSON  = "geojson"
)

// ErrUnrecognizedFormat is returned when the payload is neither Overpass JSON
// (top-level "elements") nor a GeoJSON FeatureCollection ("features").
var ErrUnrecognizedFormat = errors.New("unrecognized input format: expected Overpass JSON (elements) or GeoJSON FeatureCollection (features)")

// addressTagOrder lists the OSM address tags joined into a single address line.
var addressTagOrder = []string{
	"addr:housenumber",
	"addr:street",
	"addr:city",
	"addr:state",
	"addr:postcode",
}

// ImportResult holds the rows parsed from an import payload.
type ImportResult struct {
	Format  string
	Total   int      // Elements or features seen in the payload
	Places  []*Place // Rows that passed validation
	Skipped int      // Elements or features rejected by validation
}

type overpassDocument struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type string         `json:"type"`
	ID   json.Number    `json:"id"`
	Lat  *float64       `json:"lat"`
	Lon  *float64       `json:"lon"`
	Tags map[string]any `json:"tags"`
}

type geoJSONDocument struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

type geoJSONFeature struct {
	Geometry   *geoJSONGeometry `json:"geometry"`
	Properties map[string]any   `json:"properties"`
}

type geoJSONGeometry struct {
	Type        string `json:"type"`
	Coordinates []any  `json:"coordinates"`
}

// ParseImport detects the payload format and converts valid entries into places.
func ParseImport(data []byte) (*ImportResult, error) {
	var shape struct {
		Type     string          `json:"type"`
		Elements json.RawMessage `json:"elements"`
		Features json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("failed to parse import payload: %w", err)
	}

	switch {
	case isJSONArray(shape.Elements):
		return parseOverpass(data)
	case shape.Type == "FeatureCollection" && isJSONArray(shape.Features):
		return parseGeoJSON(data)
	default:
		return nil, ErrUnrecognizedFormat
	}
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}

func parseOverpass(data []byte) (*ImportResult, error) {
	var doc overpassDocument
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse overpass payload: %w", err)
	}

	result := &ImportResult{Format: FormatOverpass, Total: len(doc.Elements)}
	for _, el := range doc.Elements {
		name, ok := tagString(el.Tags, "name")
		if el.Type != "node" || el.Lat == nil || el.Lon == nil || !ok || strings.TrimSpace(name) == "" || el.ID == "" {
			result.Skipped++
			continue
		}
		lat, lng := *el.Lat, *el.Lon
		result.Places = append(result.Places, &Place{
			OSMID:   el.Type + "/" + el.ID.String(),
			Name:    &name,
			Lat:     &lat,
			Lng:     &lng,
			Cuisine: optionalTag(el.Tags, "cuisine"),
			Address: BuildAddress(el.Tags),
		})
	}
	return result, nil
}

func parseGeoJSON(data []byte) (*ImportResult, error) {
	var doc geoJSONDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse geojson payload: %w", err)
	}

	result := &ImportResult{Format: FormatGeoJSON, Total: len(doc.Features)}
	for _, f := range doc.Features {
		p, ok := geoJSONFeatureToPlace(f)
		if !ok {
			result.Skipped++
			continue
		}
		result.Places = append(result.Places, p)
	}
	return result, nil
}

// geoJSONFeatureToPlace converts a Point feature. Tags may be nested under
// properties.tags or flattened into properties.
func geoJSONFeatureToPlace(f geoJSONFeature) (*Place, bool) {
	if f.Geometry == nil || f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) < 2 {
		return nil, false
	}
	lng, lngOK := f.Geometry.Coordinates[0].(float64)
	lat, latOK := f.Geometry.Coordinates[1].(float64)
	if !lngOK || !latOK {
		return nil, false
	}

	props := f.Properties
	if props == nil {
		props = map[string]any{}
	}
	tags := props
	if nested, ok := props["tags"].(map[string]any); ok {
		tags = nested
	}

	name, ok := tagString(tags, "name")
	if !ok || strings.TrimSpace(name) == "" {
		return nil, false
	}

	osmID := featureOSMID(props)
	if osmID == "" {
		return nil, false
	}

	return &Place{
		OSMID:   osmID,
		Name:    &name,
		Lat:     &lat,
		Lng:     &lng,
		Cuisine: optionalTag(tags, "cuisine"),
		Address: BuildAddress(tags),
	}, true
}

// featureOSMID picks a stable identifier: osm_id, then type/id, then @id.
func featureOSMID(props map[string]any) string {
	if v := scalarString(props["osm_id"]); v != "" {
		return v
	}
	typ := scalarString(props["type"])
	id := scalarString(props["id"])
	if typ != "" && id != "" {
		return typ + "/" + id
	}
	return scalarString(props["@id"])
}

// BuildAddress joins the non-empty OSM address tags with spaces.
// Returns nil when no address tag is present.
func BuildAddress(tags map[string]any) *string {
	parts := make([]string, 0, len(addressTagOrder))
	for _, key := range addressTagOrder {
		if v, ok := tagString(tags, key); ok && v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	addr := strings.Join(parts, " ")
	return &addr
}

func tagString(tags map[string]any, key string) (string, bool) {
	v, ok := tags[key].(string)
	return v, ok
}

func optionalTag(tags map[string]any, key string) *string {
	v, ok := tagString(tags, key)
	if !ok {
		return nil
	}
	return &v
}

// scalarString renders string and numeric JSON scalars; anything else is "".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// DedupeByOSMID keeps one place per OSMID. The last occurrence wins but
// takes the position of the first. Returns the kept places and the number
// of duplicates dropped.
func DedupeByOSMID(places []*Place) ([]*Place, int) {
	index := make(map[string]int, len(places))
	out := make([]*Place, 0, len(places))
	for _, p := range places {
		if i, ok := index[p.OSMID]; ok {
			out[i] = p
			continue
		}
		index[p.OSMID] = len(out)
		out = append(out, p)
	}
	return out, len(places) - len(out)
}
