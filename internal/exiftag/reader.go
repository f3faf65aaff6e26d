package exiftag

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// ReadTags decodes the EXIF block of a JPEG or TIFF stream into RawTags.
//
// IFD0 and the Exif sub-IFD are flattened into one map; the GPS sub-IFD is
// returned as a GPS value under TagGPSInfo. Images without EXIF yield an
// empty map together with the decode error; callers treat the error as
// informational. Tags whose values cannot be decoded are skipped.
func ReadTags(r io.Reader) (RawTags, error) {
	raw := RawTags{}

	x, err := exif.Decode(r)
	if x == nil || x.Tiff == nil || len(x.Tiff.Dirs) == 0 {
		if err != nil {
			return raw, fmt.Errorf("decode exif: %w", err)
		}
		return raw, nil
	}

	var exifOff, gpsOff int64 = -1, -1
	for _, tag := range x.Tiff.Dirs[0].Tags {
		v, ok := tagValue(tag)
		if !ok {
			continue
		}
		raw[tag.Id] = v
		switch tag.Id {
		case TagExifIFD:
			exifOff, _ = tag.Int64(0)
		case TagGPSInfo:
			gpsOff, _ = tag.Int64(0)
		}
	}

	if exifOff >= 0 {
		if dir, err := subDir(x, exifOff); err == nil {
			for _, tag := range dir.Tags {
				if v, ok := tagValue(tag); ok {
					raw[tag.Id] = v
				}
			}
		}
	}

	if gpsOff >= 0 {
		delete(raw, TagGPSInfo)
		if dir, err := subDir(x, gpsOff); err == nil {
			gps := GPS{}
			for _, tag := range dir.Tags {
				if v, ok := tagValue(tag); ok {
					gps[tag.Id] = v
				}
			}
			raw[TagGPSInfo] = gps
		}
	}

	return raw, nil
}

func subDir(x *exif.Exif, offset int64) (*tiff.Dir, error) {
	r := bytes.NewReader(x.Raw)
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, err
	}
	dir, _, err := tiff.DecodeDir(r, x.Tiff.Order)
	return dir, err
}

// tagValue converts a TIFF tag into the RawTags value model. Single values
// become scalars, multi-valued tags become slices.
func tagValue(tag *tiff.Tag) (any, bool) {
	switch tag.Type {
	case tiff.DTByte, tiff.DTUndefined:
		return append([]byte(nil), tag.Val...), true
	case tiff.DTAscii:
		s, err := tag.StringVal()
		if err != nil {
			return nil, false
		}
		return s, true
	}

	n := int(tag.Count)
	if n == 0 {
		return nil, false
	}

	switch tag.Format() {
	case tiff.RatVal:
		vals := make([]Rational, 0, n)
		for i := 0; i < n; i++ {
			num, den, err := tag.Rat2(i)
			if err != nil {
				return nil, false
			}
			vals = append(vals, Rational{Num: num, Den: den})
		}
		if n == 1 {
			return vals[0], true
		}
		return vals, true
	case tiff.IntVal:
		vals := make([]int64, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Int64(i)
			if err != nil {
				return nil, false
			}
			vals = append(vals, v)
		}
		if n == 1 {
			return vals[0], true
		}
		return vals, true
	case tiff.FloatVal:
		vals := make([]float64, 0, n)
		for i := 0; i < n; i++ {
			v, err := tag.Float(i)
			if err != nil {
				return nil, false
			}
			vals = append(vals, v)
		}
		if n == 1 {
			return vals[0], true
		}
		return vals, true
	}
	return nil, false
}
