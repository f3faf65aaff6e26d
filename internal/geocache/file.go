package geocache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// File keeps entries in a JSON document of the form
//
//	{"a.jpg": {"address": {"display_name": "...", "address": {...}}}}
//
// Saves replace the file atomically.
type File struct {
	Path string
}

// NewFile returns a cache stored at path.
func NewFile(path string) *File {
	return &File{Path: path}
}

// Load reads the document. A missing file is an empty cache. Entries whose
// address is not an object are skipped.
func (f *File) Load(ctx context.Context) (Entries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := Entries{}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return entries, fmt.Errorf("read cache: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	if !gjson.ValidBytes(data) {
		return entries, fmt.Errorf("read cache %s: invalid json", f.Path)
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return entries, fmt.Errorf("read cache %s: not an object", f.Path)
	}
	res.ForEach(func(k, v gjson.Result) bool {
		if addr := v.Get("address"); addr.IsObject() {
			entries[k.String()] = []byte(addr.Raw)
		}
		return true
	})
	return entries, nil
}

// Save writes entries, replacing the previous document.
func (f *File) Save(ctx context.Context, entries Entries) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := []byte("{}")
	for _, name := range entries.Names() {
		payload := entries[name]
		if !gjson.ValidBytes(payload) {
			continue
		}
		var err error
		doc, err = sjson.SetRawBytes(doc, gjson.Escape(name)+".address", payload)
		if err != nil {
			return fmt.Errorf("encode cache entry %s: %w", name, err)
		}
	}
	doc = pretty.PrettyOptions(doc, &pretty.Options{Width: 80, Indent: "  ", SortKeys: true})

	if dir := filepath.Dir(f.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	if err := atomic.WriteFile(f.Path, bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *File) Close() error { return nil }
