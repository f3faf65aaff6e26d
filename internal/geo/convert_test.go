package geo

import (
	"math"
	"testing"

	"artframe/internal/exiftag"
)

func dms(d, m, s int64) []exiftag.Rational {
	return []exiftag.Rational{{Num: d, Den: 1}, {Num: m, Den: 1}, {Num: s, Den: 1}}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestToDecimalHemispheres(t *testing.T) {
	cases := []struct {
		latRef, lonRef string
		latSign        float64
		lonSign        float64
	}{
		{"N", "E", 1, 1},
		{"n", "e", 1, 1},
		{"S", "W", -1, -1},
		{"s", "w", -1, -1},
		{"X", "E", -1, 1},
		{"N\x00", "E ", 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.latRef+tc.lonRef, func(t *testing.T) {
			gps := exiftag.GPS{
				exiftag.GPSLatitudeRef: tc.latRef,
				exiftag.GPSLatitude:    dms(33, 52, 4),
				exiftag.GPSLongRef:     tc.lonRef,
				exiftag.GPSLongitude:   dms(151, 12, 36),
			}
			lat, lon, ok := ToDecimal(gps)
			if !ok {
				t.Fatalf("ToDecimal not ok")
			}
			wantLat := tc.latSign * (33 + 52.0/60 + 4.0/3600)
			wantLon := tc.lonSign * (151 + 12.0/60 + 36.0/3600)
			if !near(lat, wantLat) || !near(lon, wantLon) {
				t.Fatalf("got (%v, %v) want (%v, %v)", lat, lon, wantLat, wantLon)
			}
		})
	}
}

func TestToDecimalMalformed(t *testing.T) {
	if _, _, ok := ToDecimal(nil); ok {
		t.Fatalf("nil gps should not be ok")
	}
	if _, _, ok := ToDecimal(exiftag.GPS{}); ok {
		t.Fatalf("empty gps should not be ok")
	}
	if _, _, ok := ToDecimal(exiftag.GPS{exiftag.GPSLatitudeRef: "N"}); ok {
		t.Fatalf("partial gps should not be ok")
	}
}

func TestToDecimalZeroDenominatorAndPlainNumbers(t *testing.T) {
	gps := exiftag.GPS{
		exiftag.GPSLatitudeRef: "N",
		exiftag.GPSLatitude:    []exiftag.Rational{{Num: 10, Den: 1}, {Num: 30, Den: 0}, {Num: 0, Den: 1}},
		exiftag.GPSLongRef:     []byte("W"),
		exiftag.GPSLongitude:   []float64{20, 30, 0},
	}
	lat, lon, ok := ToDecimal(gps)
	if !ok {
		t.Fatalf("not ok")
	}
	if !near(lat, 10) || !near(lon, -20.5) {
		t.Fatalf("got (%v, %v)", lat, lon)
	}
}
