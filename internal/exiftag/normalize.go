package exiftag

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// ErrInvalidText reports bytes that are not valid under the tag's encoding.
var ErrInvalidText = errors.New("invalid byte sequence for encoding")

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// DefaultEncodings lists the tags whose byte values are not UTF-8.
// Windows XP* tags are stored as UTF-16LE.
var DefaultEncodings = map[string]encoding.Encoding{
	"XPAuthor":   utf16LE,
	"XPComment":  utf16LE,
	"XPTitle":    utf16LE,
	"XPSubject":  utf16LE,
	"XPKeywords": utf16LE,
}

// DefaultIgnore lists proprietary tags that are dropped during normalization.
var DefaultIgnore = []string{"59932", "MakerNote", "59933"}

// Normalizer turns raw tag ids and values into a canonical Tags map.
type Normalizer struct {
	table     *Table
	encodings map[string]encoding.Encoding
	fallback  encoding.Encoding
	ignore    map[string]struct{}
	log       *slog.Logger
}

// NormalizerOption customizes a Normalizer.
type NormalizerOption func(*Normalizer)

// WithEncoding assigns enc to the named tag.
func WithEncoding(name string, enc encoding.Encoding) NormalizerOption {
	return func(n *Normalizer) {
		n.encodings[name] = enc
	}
}

// WithIgnore adds names to the ignore set.
func WithIgnore(names ...string) NormalizerOption {
	return func(n *Normalizer) {
		for _, name := range names {
			n.ignore[name] = struct{}{}
		}
	}
}

// NewNormalizer returns a Normalizer over table using DefaultEncodings and
// DefaultIgnore.
func NewNormalizer(table *Table, logger *slog.Logger, opts ...NormalizerOption) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if table == nil {
		table = NewTable(ExtensionTags)
	}
	n := &Normalizer{
		table:     table,
		encodings: make(map[string]encoding.Encoding, len(DefaultEncodings)),
		fallback:  unicode.UTF8,
		ignore:    make(map[string]struct{}, len(DefaultIgnore)),
		log:       logger,
	}
	for name, enc := range DefaultEncodings {
		n.encodings[name] = enc
	}
	for _, name := range DefaultIgnore {
		n.ignore[name] = struct{}{}
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Table returns the id to name table used by n.
func (n *Normalizer) Table() *Table {
	return n.table
}

// Normalize names every raw tag, drops ignored tags and decodes byte values.
func (n *Normalizer) Normalize(raw RawTags) Tags {
	tags := make(Tags, len(raw))
	for id, value := range raw {
		name := n.table.Name(id)
		if _, skip := n.ignore[name]; skip {
			continue
		}
		tags[name] = n.Decode(name, value)
	}
	return tags
}

// Decode converts byte values to text using the encoding assigned to name.
// On a decode fault the original bytes are returned.
func (n *Normalizer) Decode(name string, value any) any {
	b, ok := value.([]byte)
	if !ok {
		return value
	}
	enc, ok := n.encodings[name]
	if !ok {
		enc = n.fallback
	}
	s, err := decodeText(enc, b)
	if err != nil {
		n.log.Warn("error decoding tag", "tag", name, "error", err)
		return value
	}
	return s
}

func decodeText(enc encoding.Encoding, b []byte) (string, error) {
	if enc == unicode.UTF8 {
		if !utf8.Valid(b) {
			return "", fmt.Errorf("%w (%d bytes)", ErrInvalidText, len(b))
		}
		return string(b), nil
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	// Decoders emit U+FFFD for malformed input. It is a fault unless the
	// input carries the encoded replacement character itself.
	if bytes.ContainsRune(out, utf8.RuneError) && !hasReplacement(enc, b) {
		return "", fmt.Errorf("%w (%d bytes)", ErrInvalidText, len(b))
	}
	return string(out), nil
}

func hasReplacement(enc encoding.Encoding, b []byte) bool {
	rep, err := enc.NewEncoder().Bytes([]byte(string(utf8.RuneError)))
	if err != nil || len(rep) == 0 {
		return false
	}
	return bytes.Contains(b, rep)
}
