package caption

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"artframe/internal/gallery"
)

// addressParts lists address components in output order. Within a group
// the first key present in the payload wins.
var addressParts = [][]string{
	{"village", "town", "city"},
	{"city_district", "county", "state_district"},
	{"territory", "province", "state"},
	{"country"},
}

// FormatAddress builds a comma separated address from a reverse-geocode
// payload. Payloads whose address block is not shaped as expected fall back
// to display_name.
func FormatAddress(payload json.RawMessage) string {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return ""
	}
	res := gjson.ParseBytes(payload)
	if !res.IsObject() {
		return ""
	}
	display := res.Get("display_name").String()

	addr := res.Get("address")
	if !addr.IsObject() {
		return display
	}

	var parts []string
	for _, keys := range addressParts {
		v, ok := firstKey(addr, keys)
		if !ok {
			continue
		}
		switch v.Type {
		case gjson.Null:
		case gjson.String:
			if s := v.String(); s != "" {
				parts = append(parts, s)
			}
		default:
			return display
		}
	}
	return strings.Join(parts, ", ")
}

func firstKey(obj gjson.Result, keys []string) (gjson.Result, bool) {
	for _, k := range keys {
		if v := obj.Get(gjson.Escape(k)); v.Exists() {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// Location returns the formatted address of a resolved record, else def.
func Location(rec gallery.Record, def string) string {
	if rec.State == gallery.AddressResolved {
		if loc := FormatAddress(rec.Address); loc != "" {
			return loc
		}
	}
	return def
}

// ShortLocation collapses addresses in the Northern Territory of Australia
// to their first two segments joined by " - " with a " WA" suffix. Other
// addresses are returned unchanged.
func ShortLocation(loc string) string {
	if !strings.Contains(loc, "Northern Territory") || !strings.Contains(loc, "Australia") {
		return loc
	}
	segs := strings.Split(loc, ",")
	return strings.Join(segs[:min(2, len(segs))], " - ") + " WA"
}

// CaptionLocation is Location in its short caption form.
func CaptionLocation(rec gallery.Record, def string) string {
	return ShortLocation(Location(rec, def))
}
