// Package caption derives presentation fields (title, byline, camera,
// settings, location) from a gallery record. Everything here is a pure
// function of the record snapshot it is given.
//
// An empty string stands for "no value" throughout.
package caption

import (
	"fmt"
	"strings"
	"time"

	"artframe/internal/gallery"
)

// Title returns ImageTitle or XPTitle, else def, else the description.
// Sidecar text never overrides embedded tags.
func Title(rec gallery.Record, def string) string {
	if t := rec.String("ImageTitle", "XPTitle"); t != "" {
		return t
	}
	if def != "" {
		return def
	}
	return Description(rec, "")
}

// Description returns XPSubject or ImageDescription, else def.
func Description(rec gallery.Record, def string) string {
	return or(rec.String("XPSubject", "ImageDescription"), def)
}

// Photographer returns Photographer, Artist or XPAuthor, else def.
func Photographer(rec gallery.Record, def string) string {
	return or(rec.String("Photographer", "Artist", "XPAuthor"), def)
}

// Artist returns the Artist tag.
func Artist(rec gallery.Record) string {
	return rec.String("Artist")
}

// Copyright returns the Copyright tag.
func Copyright(rec gallery.Record) string {
	return rec.String("Copyright")
}

// Credit returns the copyright holder, else the photographer.
func Credit(rec gallery.Record, def string) string {
	return or(Copyright(rec), Photographer(rec, def))
}

// DateOriginal returns the raw DateTimeOriginal string, else def.
func DateOriginal(rec gallery.Record, def string) string {
	return or(rec.String("DateTimeOriginal"), def)
}

var captureLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CaptureTime parses DateTimeOriginal. The EXIF form "2021:06:15 10:00:00"
// has its first two colons turned into dashes before parsing.
func CaptureTime(rec gallery.Record) (time.Time, bool) {
	s := rec.String("DateTimeOriginal")
	if s == "" {
		return time.Time{}, false
	}
	s = strings.Replace(s, ":", "-", 2)
	for _, layout := range captureLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Byline returns "<photographer> <Month> <Year>", the photographer alone
// when the capture date is unknown, or "" when there is no photographer.
func Byline(rec gallery.Record, def string) string {
	p := Photographer(rec, def)
	if p == "" {
		return ""
	}
	t, ok := CaptureTime(rec)
	if !ok {
		return p
	}
	return fmt.Sprintf("%s %s %d", p, t.Month(), t.Year())
}

// UserComment returns UserComment or XPComment, else def. A leading ASCII
// character code marker is removed.
func UserComment(rec gallery.Record, def string) string {
	c := or(rec.String("UserComment", "XPComment"), def)
	if strings.HasPrefix(c, "ASCII") {
		c = strings.ReplaceAll(c, "ASCII", "")
	}
	return c
}

func or(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
