package geocache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"

	"artframe/internal/config"
	"artframe/internal/gallery"
)

const payloadA = `{"display_name":"Yulara, Australia","address":{"town":"Yulara","country":"Australia"}}`

func TestFileRoundTripAndMerge(t *testing.T) {
	ctx := context.Background()
	c := NewFile(filepath.Join(t.TempDir(), "nested", "gps_data.json"))

	if err := c.Save(ctx, Entries{"a.jpg": json.RawMessage(payloadA)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lib := gallery.NewLibrary()
	lib.Put("a.jpg", nil)
	lib.Put("b.jpg", nil)
	lib.Merge(loaded)

	a, _ := lib.Get("a.jpg")
	if a.State != gallery.AddressResolved {
		t.Fatalf("a.jpg state = %v", a.State)
	}
	if gjson.GetBytes(a.Address, "address.town").String() != "Yulara" ||
		gjson.GetBytes(a.Address, "display_name").String() != "Yulara, Australia" {
		t.Fatalf("address = %s", a.Address)
	}
	b, _ := lib.Get("b.jpg")
	if b.State != gallery.AddressUnresolved || b.Address != nil {
		t.Fatalf("b.jpg touched: %+v", b)
	}
}

func TestFileDocumentShape(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gps_data.json")
	c := NewFile(path)
	if err := c.Save(ctx, Entries{"my.photo.jpg": json.RawMessage(payloadA)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := gjson.GetBytes(data, gjson.Escape("my.photo.jpg")+".address.address.country").String(); got != "Australia" {
		t.Fatalf("document = %s", data)
	}
}

func TestFileSaveEmptyOverwrites(t *testing.T) {
	ctx := context.Background()
	c := NewFile(filepath.Join(t.TempDir(), "gps_data.json"))
	if err := c.Save(ctx, Entries{"a.jpg": json.RawMessage(payloadA)}); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx, Entries{}); err != nil {
		t.Fatal(err)
	}
	got, err := c.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("Load = %v, %v", got, err)
	}
}

func TestFileLoadTolerance(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	got, err := NewFile(filepath.Join(dir, "missing.json")).Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("missing = %v, %v", got, err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{nope"), 0o644)
	got, err = NewFile(bad).Load(ctx)
	if err == nil || len(got) != 0 {
		t.Fatalf("malformed = %v, %v", got, err)
	}

	mixed := filepath.Join(dir, "mixed.json")
	os.WriteFile(mixed, []byte(`{"a.jpg":{"address":`+payloadA+`},"b.jpg":{"address":null},"c.jpg":{}}`), 0o644)
	got, err = NewFile(mixed).Load(ctx)
	if err != nil || len(got) != 1 || got["a.jpg"] == nil {
		t.Fatalf("mixed = %v, %v", got, err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(config.Cache{Backend: "sqlite", DatabasePath: filepath.Join(dir, "c.db")})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Save(ctx, Entries{"a.jpg": json.RawMessage(payloadA)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := c.Load(ctx)
	if err != nil || string(got["a.jpg"]) != payloadA {
		t.Fatalf("Load = %v, %v", got, err)
	}

	if _, err := Open(config.Cache{Backend: "redis"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, ok := mustOpen(t, config.Cache{Backend: "file", Path: filepath.Join(dir, "x.json")}).(*File); !ok {
		t.Fatalf("file backend type")
	}
}

func mustOpen(t *testing.T, cfg config.Cache) Cache {
	t.Helper()
	c, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return c
}
