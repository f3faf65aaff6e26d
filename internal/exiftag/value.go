package exiftag

// Rational is an EXIF RATIONAL or SRATIONAL value.
type Rational struct {
	Num int64
	Den int64
}

// Float lowers r to a float64. A zero denominator lowers to 0.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// GPS holds the GPS sub-IFD keyed by GPS tag id (1 = GPSLatitudeRef,
// 2 = GPSLatitude, 3 = GPSLongitudeRef, 4 = GPSLongitude, ...).
type GPS map[uint16]any

// RawTags is the tag source output for a single image: tag id to raw value.
// Values are one of string, int64, float64, []byte, Rational, []Rational,
// []int64, []float64 or GPS.
type RawTags map[uint16]any

// Tags is a normalized tag set keyed by canonical tag name.
type Tags map[string]any

// Lower converts a Rational to float64 and returns any other value unchanged.
func Lower(v any) any {
	if r, ok := v.(Rational); ok {
		return r.Float()
	}
	return v
}

// AsFloat lowers numeric values to float64.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case Rational:
		return x.Float(), true
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}
