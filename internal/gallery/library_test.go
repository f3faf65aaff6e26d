package gallery

import (
	"encoding/json"
	"testing"

	"artframe/internal/exiftag"
)

func TestLibraryPutKeepsAddress(t *testing.T) {
	lib := NewLibrary()
	lib.Put("a.jpg", exiftag.Tags{"Model": "A"})
	lib.SetAddress("a.jpg", json.RawMessage(`{"display_name":"x"}`))

	lib.Put("a.jpg", exiftag.Tags{"Model": "B"})

	rec, ok := lib.Get("a.jpg")
	if !ok {
		t.Fatalf("record missing")
	}
	if rec.Tags["Model"] != "B" {
		t.Fatalf("tags not replaced: %#v", rec.Tags)
	}
	if rec.State != AddressResolved || string(rec.Address) != `{"display_name":"x"}` {
		t.Fatalf("address lost: %v %s", rec.State, rec.Address)
	}
}

func TestLibraryMergeOnlyKnownRecords(t *testing.T) {
	lib := NewLibrary()
	lib.Put("a.jpg", nil)
	lib.Put("b.jpg", nil)
	lib.MarkNone("b.jpg")

	n := lib.Merge(map[string]json.RawMessage{
		"a.jpg":     json.RawMessage(`{"display_name":"A"}`),
		"b.jpg":     json.RawMessage(`{"display_name":"B"}`),
		"other.jpg": json.RawMessage(`{"display_name":"O"}`),
	})
	if n != 2 {
		t.Fatalf("merged %d, want 2", n)
	}
	if lib.Has("other.jpg") {
		t.Fatalf("merge created a record for an unknown file")
	}
	if lib.Len() != 2 {
		t.Fatalf("len = %d", lib.Len())
	}

	// A resolved record is not overwritten by a later merge.
	lib.Merge(map[string]json.RawMessage{"a.jpg": json.RawMessage(`{"display_name":"stale"}`)})
	rec, _ := lib.Get("a.jpg")
	if string(rec.Address) != `{"display_name":"A"}` {
		t.Fatalf("address = %s", rec.Address)
	}
}

func TestLibraryResolvedSkipsNone(t *testing.T) {
	lib := NewLibrary()
	for _, n := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		lib.Put(n, nil)
	}
	lib.SetAddress("a.jpg", json.RawMessage(`{}`))
	lib.MarkNone("b.jpg")

	got := lib.Resolved([]string{"a.jpg", "b.jpg", "c.jpg", "zzz.jpg"})
	if len(got) != 1 || got["a.jpg"] == nil {
		t.Fatalf("resolved = %v", got)
	}
	if names := lib.Names(); len(names) != 3 || names[0] != "a.jpg" || names[2] != "c.jpg" {
		t.Fatalf("names = %v", names)
	}
}
