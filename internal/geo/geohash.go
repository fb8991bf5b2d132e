// Package geo encodes place coordinates as geohash cells for the place API.
package geo

import "strings"

// DefaultPrecision is the cell length exposed on place responses.
// Six characters is roughly a 1.2 km by 0.6 km cell, enough to group nearby
// places on a map without implying pin-point accuracy.
const DefaultPrecision = 6

// base32 is the geohash alphabet. It omits a, i, l and o.
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Encode returns the geohash of lat/lng with the given number of characters.
// A precision below 1 selects DefaultPrecision.
func Encode(lat, lng float64, precision int) string {
	if precision < 1 {
		precision = DefaultPrecision
	}

	latLo, latHi := -90.0, 90.0
	lngLo, lngHi := -180.0, 180.0

	var out strings.Builder
	out.Grow(precision)

	var ch byte
	bit := 0
	lngBit := true
	for out.Len() < precision {
		if lngBit {
			mid := (lngLo + lngHi) / 2
			if lng > mid {
				ch |= 1 << (4 - bit)
				lngLo = mid
			} else {
				lngHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if lat > mid {
				ch |= 1 << (4 - bit)
				latLo = mid
			} else {
				latHi = mid
			}
		}
		lngBit = !lngBit

		if bit++; bit == 5 {
			out.WriteByte(base32[ch])
			bit, ch = 0, 0
		}
	}
	return out.String()
}

// RoundGeohash lowercases input and truncates it to precision characters.
// It returns "" when input is empty, precision is below 1, or input holds a
// character outside the geohash alphabet.
func RoundGeohash(input string, precision int) string {
	if input == "" || precision < 1 {
		return ""
	}

	lower := strings.ToLower(input)
	for _, c := range lower {
		if !strings.ContainsRune(base32, c) {
			return ""
		}
	}

	if len(lower) <= precision {
		return lower
	}
	return lower[:precision]
}

// InCell reports whether hash lies inside cell. Every hash is inside the
// empty cell.
func InCell(hash, cell string) bool {
	return strings.HasPrefix(hash, cell)
}
