// Package geo converts EXIF GPS data to decimal degrees and reverse-geocodes
// coordinates through a rate-limited external service.
package geo

import (
	"math"
	"strings"

	"artframe/internal/exiftag"
)

// ToDecimal converts a GPS sub-IFD into signed decimal degrees.
//
// Latitude is negative unless its reference letter is N, longitude unless
// it is E; letters compare case-insensitively. ok is false when the
// structure is absent, empty or lacks any of the four entries.
func ToDecimal(gps exiftag.GPS) (lat, lon float64, ok bool) {
	if len(gps) == 0 {
		return 0, 0, false
	}
	latRef, ok1 := gps[exiftag.GPSLatitudeRef]
	latDMS, ok2 := gps[exiftag.GPSLatitude]
	lonRef, ok3 := gps[exiftag.GPSLongRef]
	lonDMS, ok4 := gps[exiftag.GPSLongitude]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, 0, false
	}

	lat = degrees(latDMS)
	if !hemisphere(latRef, "N") {
		lat = -lat
	}
	lon = degrees(lonDMS)
	if !hemisphere(lonRef, "E") {
		lon = -lon
	}
	return lat, lon, true
}

func hemisphere(ref any, positive string) bool {
	var s string
	switch v := ref.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return false
	}
	return strings.EqualFold(strings.Trim(s, "\x00 "), positive)
}

// degrees reduces degree, minute, second values as sum(v[i] / 60^i).
// Elements that are not numbers count as zero.
func degrees(v any) float64 {
	var parts []any
	switch x := v.(type) {
	case []exiftag.Rational:
		for _, r := range x {
			parts = append(parts, r)
		}
	case []float64:
		for _, f := range x {
			parts = append(parts, f)
		}
	case []int64:
		for _, n := range x {
			parts = append(parts, n)
		}
	case []any:
		parts = x
	default:
		parts = []any{x}
	}

	var total float64
	for i, p := range parts {
		if i > 2 {
			break
		}
		f, _ := exiftag.AsFloat(p)
		total += f / math.Pow(60, float64(i))
	}
	return total
}
