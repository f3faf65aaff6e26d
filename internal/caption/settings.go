package caption

import (
	"math"
	"strconv"
	"strings"

	"artframe/internal/gallery"
)

// Camera returns the model plus "<n>mm" focal length, or the lens model
// when no focal length is recorded.
func Camera(rec gallery.Record) string {
	lens := ""
	if focal, ok := number(rec, "FocalLength"); ok {
		lens = strconv.FormatInt(int64(math.Round(focal)), 10) + "mm"
	} else {
		lens = rec.String("LensModel")
	}
	return join(rec.String("Model"), lens)
}

// Settings returns exposure, f-stop and ISO, e.g. "1/125 f8 ISO200".
func Settings(rec gallery.Record) string {
	exposure := ""
	if t, ok := number(rec, "ExposureTime"); ok {
		exposure = "1/" + strconv.FormatInt(int64(math.Round(1/t)), 10)
	}

	fstop := ""
	if f, ok := number(rec, "FNumber"); ok {
		fstop = "f" + strconv.FormatFloat(f, 'f', -1, 64)
	} else if av, ok := number(rec, "ApertureValue"); ok {
		fstop = "f" + strconv.FormatFloat(ApertureToFNumber(av), 'f', 1, 64)
	}

	iso := ""
	if n, ok := number(rec, "ISOSpeedRatings"); ok {
		iso = "ISO" + strconv.FormatFloat(n, 'f', -1, 64)
	}

	return join(exposure, fstop, iso)
}

// ApertureToFNumber converts an APEX aperture value to an f-number rounded
// to one decimal place.
func ApertureToFNumber(av float64) float64 {
	return math.Round(math.Pow(2, av/2)*10) / 10
}

// number returns a non-zero numeric tag.
func number(rec gallery.Record, key string) (float64, bool) {
	v, ok := rec.Float(key)
	if !ok || v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func join(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
