package gallery

import (
	"context"
	"testing"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"artframe/internal/exiftag/exiftagtest"
)

func newMemFolder(t *testing.T, files map[string][]byte) (*Folder, *blob.Bucket) {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })
	ctx := context.Background()
	for k, v := range files {
		if err := bucket.WriteAll(ctx, k, v, nil); err != nil {
			t.Fatalf("write %s: %v", k, err)
		}
	}
	return NewFolder(bucket, []string{".txt"}, nil), bucket
}

func TestFolderListExcludesAndSorts(t *testing.T) {
	f, _ := newMemFolder(t, map[string][]byte{
		"b.JPG":     []byte("x"),
		"a.jpg":     []byte("x"),
		"a.TXT":     []byte("{}"),
		"sub/c.jpg": []byte("x"),
	})

	names, err := f.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != "a.jpg" || names[1] != "b.JPG" {
		t.Fatalf("names = %v", names)
	}
}

func TestFolderReadTags(t *testing.T) {
	jpeg := exiftagtest.JPEG(exiftagtest.TIFF(
		[]exiftagtest.Entry{exiftagtest.ASCII(0x0110, "X100V")}, nil, nil,
	))
	f, _ := newMemFolder(t, map[string][]byte{
		"a.jpg": jpeg,
		"b.jpg": []byte{0xFF, 0xD8, 0xFF, 0xD9},
	})
	ctx := context.Background()

	raw, err := f.ReadTags(ctx, "a.jpg")
	if err != nil {
		t.Fatalf("ReadTags: %v", err)
	}
	if raw[0x0110] != "X100V" {
		t.Fatalf("raw = %#v", raw)
	}

	raw, err = f.ReadTags(ctx, "b.jpg")
	if err != nil || len(raw) != 0 {
		t.Fatalf("no-exif file: raw=%#v err=%v", raw, err)
	}

	if _, err := f.ReadTags(ctx, "missing.jpg"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestBucketURI(t *testing.T) {
	uri, local, err := bucketURI("mem://")
	if err != nil || uri != "mem://" || local != "" {
		t.Fatalf("mem: %q %q %v", uri, local, err)
	}
	uri, local, err = bucketURI("/srv/pictures")
	if err != nil || uri != "file:///srv/pictures" || local != "/srv/pictures" {
		t.Fatalf("path: %q %q %v", uri, local, err)
	}
}

func TestSidecarText(t *testing.T) {
	f, bucket := newMemFolder(t, map[string][]byte{
		"a.jpg": []byte("x"),
		"a.TXT": []byte(`{"header": "Uluru", "time": 2021, "credit": null}`),
		"b.jpg": []byte("x"),
		"b.txt": []byte(`{"description": "lower case"}`),
		"c.jpg": []byte("x"),
		"c.TXT": []byte(`not json`),
	})
	s := NewSidecars(f, nil)
	ctx := context.Background()

	text := s.Text(ctx, "a.jpg")
	if text.Get("header") != "Uluru" || text.Get("time") != "2021" {
		t.Fatalf("a = %v", text)
	}
	if _, ok := text["credit"]; ok {
		t.Fatalf("null values should be dropped: %v", text)
	}
	if got := s.Text(ctx, "b.jpg").Get("description"); got != "lower case" {
		t.Fatalf("b description = %q", got)
	}
	if got := s.Text(ctx, "c.jpg"); len(got) != 0 {
		t.Fatalf("malformed sidecar = %v", got)
	}
	if got := s.Text(ctx, "missing.jpg"); len(got) != 0 {
		t.Fatalf("missing sidecar = %v", got)
	}

	time.Sleep(5 * time.Millisecond)
	if err := bucket.WriteAll(ctx, "a.TXT", []byte(`{"header": "Kata Tjuta"}`), nil); err != nil {
		t.Fatal(err)
	}
	if got := s.Text(ctx, "a.jpg").Get("header"); got != "Kata Tjuta" {
		t.Fatalf("changed sidecar not re-read: %q", got)
	}
}

