package frame

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"gocloud.dev/blob/memblob"

	"artframe/internal/config"
	"artframe/internal/exiftag"
	"artframe/internal/exiftag/exiftagtest"
	"artframe/internal/gallery"
	"artframe/internal/geo"
	"artframe/internal/geocache"
)

const uluru = `{"display_name":"Uluru","address":{"town":"Yulara","county":"MacDonnell Region","state":"Northern Territory","country":"Australia"}}`

func imageWithGPS() []byte {
	return exiftagtest.JPEG(exiftagtest.TIFF(
		[]exiftagtest.Entry{
			exiftagtest.ASCII(0x0110, "X100V"),
			exiftagtest.Bytes(0x9C9B, exiftagtest.UTF16("Uluru at dusk")),
		},
		[]exiftagtest.Entry{
			exiftagtest.Rational(0x829A, 1, 125),
			exiftagtest.Rational(0x829D, 8, 1),
			exiftagtest.Short(0x8827, 200),
			exiftagtest.ASCII(0x9003, "2021:06:15 18:30:00"),
		},
		[]exiftagtest.Entry{
			exiftagtest.ASCII(exiftag.GPSLatitudeRef, "S"),
			exiftagtest.Rational(exiftag.GPSLatitude, 25, 1, 20, 1, 0, 1),
			exiftagtest.ASCII(exiftag.GPSLongRef, "E"),
			exiftagtest.Rational(exiftag.GPSLongitude, 131, 1, 2, 1, 0, 1),
		},
	))
}

type countingReverser struct {
	mu    sync.Mutex
	calls int
}

func (c *countingReverser) Reverse(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return json.RawMessage(uluru), nil
}

func newService(t *testing.T, cfg *config.Config, files map[string][]byte, rev geo.Reverser) *Service {
	t.Helper()
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	for k, v := range files {
		if err := bucket.WriteAll(ctx, k, v, nil); err != nil {
			t.Fatal(err)
		}
	}
	folder := gallery.NewFolder(bucket, cfg.Gallery.ExcludeSuffixes, nil)
	cache := geocache.NewFile(filepath.Join(t.TempDir(), "gps_data.json"))

	opts := []Option{WithFolder(folder), WithCache(cache)}
	if rev != nil {
		opts = append(opts, WithReverser(rev))
	}
	s, err := New(ctx, cfg, nil, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRefreshResolvesAndBuildsDocuments(t *testing.T) {
	cfg := config.Default()
	cfg.Gallery.Photographer = "J. Doe"
	rev := &countingReverser{}
	s := newService(t, cfg, map[string][]byte{
		"uluru.jpg": imageWithGPS(),
		"plain.jpg": []byte{0xFF, 0xD8, 0xFF, 0xD9},
		"plain.TXT": []byte(`{"header": "Plain", "details": "one\ntwo"}`),
	}, rev)
	ctx := context.Background()

	p, err := s.Refresh(ctx, nil)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if p == nil {
		t.Fatalf("no resolver pass started")
	}
	<-p.Done()

	if names := s.Library().Names(); len(names) != 2 {
		t.Fatalf("names = %v", names)
	}
	if rev.calls != 1 {
		t.Fatalf("reverse calls = %d", rev.calls)
	}

	c := s.Caption(ctx, "uluru.jpg")
	if c == nil {
		t.Fatalf("caption = nil")
	}
	if c.Title != "Uluru at dusk" || c.Settings != "1/125 f8 ISO200" || c.Camera != "X100V" {
		t.Fatalf("caption = %+v", c)
	}
	if c.Byline != "J. Doe June 2021" || c.Location != "Yulara -  MacDonnell Region WA" {
		t.Fatalf("caption = %+v", c)
	}

	m := s.Modal(ctx, "plain.jpg")
	if m == nil || m.Header != "Plain" || m.Details != "one<br>two" {
		t.Fatalf("modal = %+v", m)
	}

	entries, err := s.Cache().Load(ctx)
	if err != nil || len(entries) != 1 || entries["uluru.jpg"] == nil {
		t.Fatalf("cache = %v, %v", entries, err)
	}

	// A second refresh finds everything resolved.
	p, _ = s.Refresh(ctx, nil)
	<-p.Done()
	if rev.calls != 1 {
		t.Fatalf("second refresh issued requests: %d", rev.calls)
	}
}

func TestDocument(t *testing.T) {
	s := newService(t, config.Default(), map[string][]byte{"x.jpg": []byte("x")}, &countingReverser{})
	ctx := context.Background()

	if _, err := s.Document(ctx, "x.jpg", "poster"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("err = %v, want ErrUnknownKind", err)
	}
	doc, err := s.Document(ctx, "x.jpg", KindCaption)
	if err != nil || doc != nil {
		t.Fatalf("doc = %v, err = %v", doc, err)
	}
}

func TestRefreshWithoutExif(t *testing.T) {
	cfg := config.Default()
	cfg.Gallery.UseExif = false
	rev := &countingReverser{}
	s := newService(t, cfg, map[string][]byte{
		"uluru.jpg": imageWithGPS(),
		"uluru.txt": []byte(`{"description": "From the sidecar"}`),
	}, rev)
	ctx := context.Background()

	p, err := s.Refresh(ctx, nil)
	if err != nil || p != nil {
		t.Fatalf("pass=%v err=%v", p, err)
	}
	rec, ok := s.Library().Get("uluru.jpg")
	if !ok || len(rec.Tags) != 0 {
		t.Fatalf("record = %+v", rec)
	}
	c := s.Caption(ctx, "uluru.jpg")
	if c == nil || c.Title != "From the sidecar" || c.Settings != "" {
		t.Fatalf("caption = %+v", c)
	}
	if rev.calls != 0 {
		t.Fatalf("reverse calls = %d", rev.calls)
	}
}

func TestResolveRequiresGeocoding(t *testing.T) {
	cfg := config.Default()
	cfg.Geocode.Enabled = false
	s := newService(t, cfg, map[string][]byte{"a.jpg": imageWithGPS()}, nil)
	if s.Resolver() != nil {
		t.Fatalf("resolver built with geocoding disabled")
	}
	if _, err := s.Resolve(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
