package gallery

import (
	"iter"
	"testing"

	"artframe/internal/exiftag"
)

func TestFieldSanitizesAndLowers(t *testing.T) {
	rec := Record{Tags: exiftag.Tags{
		"XPTitle":      " Sunset\x00 ",
		"FNumber":      exiftag.Rational{Num: 28, Den: 10},
		"ExposureTime": exiftag.Rational{Num: 1, Den: 0},
		"GPSLatitude":  []exiftag.Rational{{Num: 1, Den: 2}, {Num: 3, Den: 0}},
		"Orientation":  int64(1),
	}}

	if got := rec.Field("XPTitle"); got != "Sunset" {
		t.Fatalf("XPTitle = %#v", got)
	}
	if got := rec.Field("FNumber"); got != 2.8 {
		t.Fatalf("FNumber = %#v", got)
	}
	if got := rec.Field("ExposureTime"); got != 0.0 {
		t.Fatalf("zero denominator = %#v", got)
	}
	if got := rec.Field("Orientation"); got != int64(1) {
		t.Fatalf("Orientation = %#v", got)
	}
	if got := rec.Field("Missing"); got != nil {
		t.Fatalf("Missing = %#v", got)
	}

	seq, ok := rec.Field("GPSLatitude").(iter.Seq[any])
	if !ok {
		t.Fatalf("GPSLatitude = %T", rec.Field("GPSLatitude"))
	}
	var got []any
	for v := range seq {
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != 0.5 || got[1] != 0.0 {
		t.Fatalf("lowered = %#v", got)
	}
}

func TestFirstPresentSkipsEmpty(t *testing.T) {
	rec := Record{Tags: exiftag.Tags{
		"ImageTitle":       "\x00\x00",
		"XPTitle":          "Dunes",
		"ImageDescription": "",
		"FocalLength":      exiftag.Rational{Num: 0, Den: 1},
	}}

	if got := rec.FirstPresent("ImageTitle", "XPTitle"); got != "Dunes" {
		t.Fatalf("title = %#v", got)
	}
	if got := rec.FirstPresent("XPSubject", "ImageDescription"); got != nil {
		t.Fatalf("description = %#v", got)
	}
	if got := rec.FirstPresent("FocalLength"); got != nil {
		t.Fatalf("zero focal length = %#v", got)
	}
	if got := rec.String("ImageTitle", "XPTitle"); got != "Dunes" {
		t.Fatalf("String = %q", got)
	}
}

func TestFloatTakesFirstElement(t *testing.T) {
	rec := Record{Tags: exiftag.Tags{
		"ISOSpeedRatings": []int64{200, 400},
		"Model":           "X100V",
	}}
	if v, ok := rec.Float("ISOSpeedRatings"); !ok || v != 200 {
		t.Fatalf("ISO = %v, %v", v, ok)
	}
	if _, ok := rec.Float("Model"); ok {
		t.Fatalf("string should not be a float")
	}
	if _, ok := rec.Float("Missing"); ok {
		t.Fatalf("missing should not be a float")
	}

	n := 0
	for range rec.Values("Model") {
		n++
	}
	if n != 1 {
		t.Fatalf("scalar Values yielded %d", n)
	}
}
