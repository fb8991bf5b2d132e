package geo

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		lat       float64
		lng       float64
		precision int
		want      string
	}{
		{name: "Seattle", lat: 47.6062, lng: -122.3321, precision: 6, want: "c23nb6"},
		{name: "Berlin", lat: 52.5200, lng: 13.4050, precision: 6, want: "u33dc0"},
		{name: "London", lat: 51.5074, lng: -0.1278, precision: 6, want: "gcpvj0"},
		{name: "precision 5", lat: 47.6062, lng: -122.3321, precision: 5, want: "c23nb"},
		{name: "default precision", lat: 47.6062, lng: -122.3321, precision: 0, want: "c23nb6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.lat, tt.lng, tt.precision); got != tt.want {
				t.Errorf("Encode(%f, %f, %d) = %q, want %q", tt.lat, tt.lng, tt.precision, got, tt.want)
			}
		})
	}
}

func TestEncode_NearbyPlacesShareCell(t *testing.T) {
	a := Encode(39.9526, -75.1652, DefaultPrecision)
	b := Encode(39.9530, -75.1648, DefaultPrecision)
	if a[:5] != b[:5] {
		t.Errorf("expected places 60 m apart to share a 5-char cell, got %q and %q", a, b)
	}
}

func TestRoundGeohash(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		precision int
		want      string
	}{
		{name: "truncate to default precision", input: "9q8yyk8yuv", precision: DefaultPrecision, want: "9q8yyk"},
		{name: "truncate to precision 4", input: "9q8yyk8yuv", precision: 4, want: "9q8y"},
		{name: "shorter than precision", input: "dr4", precision: DefaultPrecision, want: "dr4"},
		{name: "uppercase normalized", input: "DR4E3", precision: DefaultPrecision, want: "dr4e3"},
		{name: "empty input", input: "", precision: DefaultPrecision, want: ""},
		{name: "zero precision", input: "dr4e", precision: 0, want: ""},
		{name: "excluded letter a", input: "dr4a", precision: DefaultPrecision, want: ""},
		{name: "excluded letter o", input: "o", precision: DefaultPrecision, want: ""},
		{name: "punctuation", input: "dr4-e", precision: DefaultPrecision, want: ""},
		{name: "non-ascii", input: "dr4é", precision: DefaultPrecision, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundGeohash(tt.input, tt.precision); got != tt.want {
				t.Errorf("RoundGeohash(%q, %d) = %q, want %q", tt.input, tt.precision, got, tt.want)
			}
		})
	}
}

func TestInCell(t *testing.T) {
	if !InCell("dr4e3x", "dr4") {
		t.Error("expected dr4e3x inside dr4")
	}
	if InCell("dr5abc", "dr4") {
		t.Error("expected dr5abc outside dr4")
	}
	if !InCell("dr4e3x", "") {
		t.Error("every hash is inside the empty cell")
	}
}
