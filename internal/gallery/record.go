// Package gallery holds the per-image records of a picture folder and the
// collaborators that fill them: folder listing, tag reading, sidecar text
// files and change watching.
package gallery

import (
	"encoding/json"
	"iter"
	"strings"

	"artframe/internal/exiftag"
)

// AddressState tracks reverse-geocode progress for a record.
type AddressState int

const (
	// AddressUnresolved means no lookup has been attempted this session.
	AddressUnresolved AddressState = iota
	// AddressResolved means Address holds a geocode payload.
	AddressResolved
	// AddressNone means a lookup was attempted and found nothing. It is
	// never persisted.
	AddressNone
)

func (s AddressState) String() string {
	switch s {
	case AddressResolved:
		return "resolved"
	case AddressNone:
		return "none"
	default:
		return "unresolved"
	}
}

// Record is the state kept for one image file.
type Record struct {
	Name    string
	Tags    exiftag.Tags
	Address json.RawMessage
	State   AddressState
}

// HasAddressKey reports whether resolution is finished for the record,
// either with a payload or explicitly without one.
func (r Record) HasAddressKey() bool {
	return r.State != AddressUnresolved
}

// Field returns the value stored under key, or nil.
//
// Strings lose embedded NULs and surrounding whitespace. A single rational
// is lowered to float64. Slices come back as an iter.Seq[any] that lowers
// rationals as it is consumed.
func (r Record) Field(key string) any {
	v, ok := r.Tags[key]
	if !ok || v == nil {
		return nil
	}
	switch x := v.(type) {
	case string:
		return sanitize(x)
	case exiftag.Rational:
		return x.Float()
	case []exiftag.Rational:
		return lowered(x)
	case []int64:
		return lowered(x)
	case []float64:
		return lowered(x)
	}
	return v
}

// FirstPresent returns the first key's value that is not empty, or nil.
func (r Record) FirstPresent(keys ...string) any {
	for _, k := range keys {
		if raw, ok := r.Tags[k]; ok && !empty(raw) {
			v := r.Field(k)
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			return v
		}
	}
	return nil
}

// String returns the first non-empty string value among keys.
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		if s, ok := r.Field(k).(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Float returns key as a number. For multi-valued tags the first element is
// used.
func (r Record) Float(key string) (float64, bool) {
	switch v := r.Field(key).(type) {
	case nil:
		return 0, false
	case iter.Seq[any]:
		for x := range v {
			return exiftag.AsFloat(x)
		}
		return 0, false
	default:
		return exiftag.AsFloat(v)
	}
}

// Values returns key as a lazily lowered sequence. Scalars yield one
// element, absent keys none.
func (r Record) Values(key string) iter.Seq[any] {
	switch v := r.Field(key).(type) {
	case nil:
		return func(func(any) bool) {}
	case iter.Seq[any]:
		return v
	default:
		return func(yield func(any) bool) { yield(v) }
	}
}

func lowered[T any](vals []T) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range vals {
			if !yield(exiftag.Lower(v)) {
				return
			}
		}
	}
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// empty reports values that do not count as present: zero numbers, blank
// strings and empty sequences.
func empty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return sanitize(x) == ""
	case []byte:
		return len(x) == 0
	case exiftag.Rational:
		return x.Float() == 0
	case int64:
		return x == 0
	case int:
		return x == 0
	case float64:
		return x == 0
	case []exiftag.Rational:
		return len(x) == 0
	case []int64:
		return len(x) == 0
	case []float64:
		return len(x) == 0
	case exiftag.GPS:
		return len(x) == 0
	case bool:
		return !x
	}
	return false
}
