package gallery

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"

	"artframe/internal/exiftag"
)

// Library is the in-memory record store shared by the resolver, which
// writes addresses, and the caption layer, which reads snapshots.
type Library struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{records: make(map[string]*Record)}
}

// Put replaces the tags of name, creating the record if needed. Address
// state survives re-reads.
func (l *Library) Put(name string, tags exiftag.Tags) {
	if tags == nil {
		tags = exiftag.Tags{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.records[name]; ok {
		rec.Tags = tags
		return
	}
	l.records[name] = &Record{Name: name, Tags: tags}
}

// Get returns a snapshot of the record for name.
func (l *Library) Get(name string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[name]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Has reports whether name is known.
func (l *Library) Has(name string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.records[name]
	return ok
}

// Names returns the known file names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.records))
}

// Len returns the number of records.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// SetAddress stores a resolved payload. Unknown names are ignored.
func (l *Library) SetAddress(name string, payload json.RawMessage) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[name]
	if !ok {
		return false
	}
	rec.Address = payload
	rec.State = AddressResolved
	return true
}

// MarkNone records that no address exists for name.
func (l *Library) MarkNone(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[name]
	if !ok {
		return false
	}
	rec.Address = nil
	rec.State = AddressNone
	return true
}

// Merge applies persisted addresses to known records that are not resolved
// yet. Entries for unknown names are ignored. It returns the number of
// records updated.
func (l *Library) Merge(entries map[string]json.RawMessage) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for name, payload := range entries {
		rec, ok := l.records[name]
		if !ok || rec.State == AddressResolved || len(payload) == 0 {
			continue
		}
		rec.Address = payload
		rec.State = AddressResolved
		n++
	}
	return n
}

// Resolved returns the payloads of resolved records among names.
func (l *Library) Resolved(names []string) map[string]json.RawMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]json.RawMessage)
	for _, name := range names {
		if rec, ok := l.records[name]; ok && rec.State == AddressResolved {
			out[name] = rec.Address
		}
	}
	return out
}
