// Package geocache persists resolved reverse-geocode payloads keyed by
// image file name.
package geocache

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"artframe/internal/config"
	"artframe/internal/storage"
)

// Entries maps a file name to its raw address payload.
type Entries map[string]json.RawMessage

// Names returns the entry names in sorted order.
func (e Entries) Names() []string {
	return slices.Sorted(maps.Keys(e))
}

// Cache loads and saves Entries. Save replaces the whole persisted set.
type Cache interface {
	Load(ctx context.Context) (Entries, error)
	Save(ctx context.Context, entries Entries) error
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg config.Cache) (Cache, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFile(cfg.Path), nil
	case "sqlite":
		store, err := storage.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		return NewSQLite(store), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// SQLite stores entries in the geocode_cache table.
type SQLite struct {
	Store *storage.Store
}

// NewSQLite wraps an open store.
func NewSQLite(store *storage.Store) *SQLite {
	return &SQLite{Store: store}
}

func (c *SQLite) Load(ctx context.Context) (Entries, error) {
	rows, err := c.Store.LoadAddresses(ctx)
	if err != nil {
		return nil, err
	}
	return Entries(rows), nil
}

func (c *SQLite) Save(ctx context.Context, entries Entries) error {
	return c.Store.ReplaceAddresses(ctx, entries)
}

func (c *SQLite) Close() error {
	return c.Store.Close()
}
