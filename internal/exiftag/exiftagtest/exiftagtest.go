// Package exiftagtest builds small EXIF blobs for tests.
package exiftagtest

import (
	"encoding/binary"
	"sort"
)

// TIFF data types.
const (
	TypeByte      uint16 = 1
	TypeASCII     uint16 = 2
	TypeShort     uint16 = 3
	TypeLong      uint16 = 4
	TypeRational  uint16 = 5
	TypeUndefined uint16 = 7
)

var le = binary.LittleEndian

// Entry is one IFD entry with its value already encoded little endian.
type Entry struct {
	Tag   uint16
	Type  uint16
	Count uint32
	Data  []byte
}

// ASCII returns a NUL terminated ASCII entry.
func ASCII(tag uint16, s string) Entry {
	b := append([]byte(s), 0)
	return Entry{Tag: tag, Type: TypeASCII, Count: uint32(len(b)), Data: b}
}

// Bytes returns a BYTE entry.
func Bytes(tag uint16, b []byte) Entry {
	return Entry{Tag: tag, Type: TypeByte, Count: uint32(len(b)), Data: b}
}

// Undefined returns an UNDEFINED entry.
func Undefined(tag uint16, b []byte) Entry {
	return Entry{Tag: tag, Type: TypeUndefined, Count: uint32(len(b)), Data: b}
}

// Short returns a SHORT entry.
func Short(tag uint16, vals ...uint16) Entry {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		le.PutUint16(b[2*i:], v)
	}
	return Entry{Tag: tag, Type: TypeShort, Count: uint32(len(vals)), Data: b}
}

// Rational returns a RATIONAL entry from numerator, denominator pairs.
func Rational(tag uint16, pairs ...uint32) Entry {
	b := make([]byte, 4*len(pairs))
	for i, v := range pairs {
		le.PutUint32(b[4*i:], v)
	}
	return Entry{Tag: tag, Type: TypeRational, Count: uint32(len(pairs) / 2), Data: b}
}

// UTF16 encodes s as NUL terminated UTF-16LE, the layout of XP* tags.
func UTF16(s string) []byte {
	var b []byte
	for _, r := range s {
		b = append(b, byte(r), byte(r>>8))
	}
	return append(b, 0, 0)
}

// TIFF lays out a little endian TIFF with IFD0 and optional Exif and GPS
// sub-IFDs. Pointer entries for the sub-IFDs are added automatically.
func TIFF(ifd0, exif, gps []Entry) []byte {
	ifd0 = append([]Entry(nil), ifd0...)
	if len(exif) > 0 {
		ifd0 = append(ifd0, Entry{Tag: 0x8769, Type: TypeLong, Count: 1, Data: make([]byte, 4)})
	}
	if len(gps) > 0 {
		ifd0 = append(ifd0, Entry{Tag: 0x8825, Type: TypeLong, Count: 1, Data: make([]byte, 4)})
	}

	ifd0Start := uint32(8)
	exifStart := ifd0Start + size(ifd0)
	gpsStart := exifStart + size(exif)
	for i := range ifd0 {
		switch ifd0[i].Tag {
		case 0x8769:
			le.PutUint32(ifd0[i].Data, exifStart)
		case 0x8825:
			le.PutUint32(ifd0[i].Data, gpsStart)
		}
	}

	out := []byte{'I', 'I', 0x2A, 0x00, 0, 0, 0, 0}
	le.PutUint32(out[4:], ifd0Start)
	out = append(out, layout(ifd0Start, ifd0)...)
	if len(exif) > 0 {
		out = append(out, layout(exifStart, exif)...)
	}
	if len(gps) > 0 {
		out = append(out, layout(gpsStart, gps)...)
	}
	return out
}

// JPEG wraps a TIFF block in a minimal JPEG with an APP1 Exif segment.
func JPEG(tiff []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiff...)
	out := []byte{0xFF, 0xD8, 0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(out[4:], uint16(len(payload)+2))
	out = append(out, payload...)
	return append(out, 0xFF, 0xD9)
}

func padded(n int) uint32 {
	if n <= 4 {
		return 0
	}
	return uint32(n + n%2)
}

func size(entries []Entry) uint32 {
	if len(entries) == 0 {
		return 0
	}
	total := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		total += padded(len(e.Data))
	}
	return total
}

func layout(start uint32, entries []Entry) []byte {
	entries = append([]Entry(nil), entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Tag < entries[j].Tag })

	n := len(entries)
	head := make([]byte, 2+12*n+4)
	le.PutUint16(head, uint16(n))
	dataStart := start + uint32(len(head))
	var data []byte
	for i, e := range entries {
		p := head[2+12*i:]
		le.PutUint16(p[0:], e.Tag)
		le.PutUint16(p[2:], e.Type)
		le.PutUint32(p[4:], e.Count)
		if len(e.Data) <= 4 {
			copy(p[8:12], e.Data)
			continue
		}
		le.PutUint32(p[8:], dataStart+uint32(len(data)))
		data = append(data, e.Data...)
		if len(data)%2 == 1 {
			data = append(data, 0)
		}
	}
	return append(head, data...)
}
