// Package frame ties the gallery folder, tag normalization, the address
// resolver and caption derivation into one service used by the server and
// the CLI.
package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"artframe/internal/caption"
	"artframe/internal/config"
	"artframe/internal/exiftag"
	"artframe/internal/gallery"
	"artframe/internal/geo"
	"artframe/internal/geocache"
	"artframe/internal/resolver"
)

// ErrUnknownKind is returned for document kinds other than modal and caption.
var ErrUnknownKind = errors.New("unknown document kind")

// Document kinds.
const (
	KindModal   = "modal"
	KindCaption = "caption"
)

// Option overrides a collaborator built from config.
type Option func(*Service)

// WithFolder uses folder instead of opening cfg.Gallery.Folder.
func WithFolder(f *gallery.Folder) Option {
	return func(s *Service) { s.folder = f }
}

// WithReverser uses r instead of the rate-limited Nominatim client.
func WithReverser(r geo.Reverser) Option {
	return func(s *Service) { s.reverser = r }
}

// WithCache uses c instead of the backend named in cfg.Cache.
func WithCache(c geocache.Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithSleep replaces the resolver's cooldown wait.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(s *Service) { s.sleep = fn }
}

// Service owns the gallery state for one folder.
type Service struct {
	cfg        *config.Config
	log        *slog.Logger
	ctx        context.Context
	folder     *gallery.Folder
	sidecars   *gallery.Sidecars
	normalizer *exiftag.Normalizer
	lib        *gallery.Library
	reverser   geo.Reverser
	cache      geocache.Cache
	resolver   *resolver.Resolver
	sleep      func(context.Context, time.Duration) error

	mergeOnce sync.Once
}

// New builds a service. Background resolver passes run under ctx.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cfg:        cfg,
		log:        logger,
		ctx:        ctx,
		normalizer: exiftag.NewNormalizer(exiftag.NewTable(exiftag.ExtensionTags), logger),
		lib:        gallery.NewLibrary(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.folder == nil {
		folder, err := gallery.OpenFolder(ctx, cfg.Gallery.Folder, cfg.Gallery.ExcludeSuffixes, logger)
		if err != nil {
			return nil, err
		}
		s.folder = folder
	}
	s.sidecars = gallery.NewSidecars(s.folder, logger)

	if s.cache == nil {
		cache, err := geocache.Open(cfg.Cache)
		if err != nil {
			s.folder.Close()
			return nil, err
		}
		s.cache = cache
	}

	if s.reverser == nil && cfg.Geocode.Enabled {
		g := cfg.Geocode
		s.reverser = geo.NewRateLimited(
			geo.NewNominatim(g.Endpoint, g.UserAgent, g.Timeout(), logger),
			g.MinDelay(),
			geo.WithRetries(g.MaxRetries, g.ErrorWait()),
			geo.WithLogger(logger),
		)
	}

	if s.reverser != nil {
		ropts := resolver.Options{
			Cooldown:    cfg.Geocode.Cooldown(),
			MergeOnSave: cfg.Cache.MergeOnSave,
			Logger:      logger,
			Sleep:       s.sleep,
		}
		if db, ok := s.cache.(*geocache.SQLite); ok {
			ropts.History = db.Store
		}
		s.resolver = resolver.New(s.lib, s.reverser, s.cache, ropts)
	}
	return s, nil
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Library returns the record store.
func (s *Service) Library() *gallery.Library { return s.lib }

// Folder returns the image folder.
func (s *Service) Folder() *gallery.Folder { return s.folder }

// Cache returns the address cache backend.
func (s *Service) Cache() geocache.Cache { return s.cache }

// Resolver returns the address resolver, or nil when geocoding is off.
func (s *Service) Resolver() *resolver.Resolver { return s.resolver }

// Load normalizes names into the library, listing the folder when names is
// empty. It returns the names that were loaded.
func (s *Service) Load(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		listed, err := s.folder.List(ctx)
		if err != nil {
			return nil, err
		}
		names = listed
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.cfg.Gallery.UseExif {
			if !s.lib.Has(name) {
				s.lib.Put(name, nil)
			}
			continue
		}
		s.log.Info("getting exif data", "file", name)
		raw, err := s.folder.ReadTags(ctx, name)
		if err != nil {
			s.log.Warn("error reading image", "file", name, "error", err)
		}
		tags := s.normalizer.Normalize(raw)
		s.log.Debug("exif tags", "file", name, "count", len(tags))
		s.lib.Put(name, tags)
	}
	return names, nil
}

// Refresh loads names and starts a background resolver pass over every
// known file. The returned pass is nil when no pass runs.
func (s *Service) Refresh(ctx context.Context, names []string) (*resolver.Pass, error) {
	if _, err := s.Load(ctx, names); err != nil {
		return nil, err
	}
	if s.resolver == nil || !s.cfg.Gallery.UseExif {
		s.MergeCache(ctx)
		return nil, nil
	}
	p, started := s.resolver.Start(s.ctx, s.lib.Names())
	if !started {
		s.log.Debug("resolver pass already running", "id", p.ID)
	}
	return p, nil
}

// Resolve loads the whole folder and runs a resolver pass to completion.
func (s *Service) Resolve(ctx context.Context) (resolver.Stats, error) {
	if _, err := s.Load(ctx, nil); err != nil {
		return resolver.Stats{}, err
	}
	if s.resolver == nil {
		return resolver.Stats{}, errors.New("geocoding is disabled")
	}
	return s.resolver.Run(ctx, s.lib.Names())
}

// MergeCache merges the persisted addresses into the library once.
func (s *Service) MergeCache(ctx context.Context) {
	s.mergeOnce.Do(func() {
		entries, err := s.cache.Load(ctx)
		if err != nil {
			s.log.Warn("error loading geocode cache", "error", err)
			return
		}
		s.lib.Merge(entries)
	})
}

// Modal returns the detail document for name, or nil.
func (s *Service) Modal(ctx context.Context, name string) *caption.ModalDoc {
	return caption.Modal(s.record(name), s.sidecars.Text(ctx, name))
}

// Caption returns the caption document for name, or nil.
func (s *Service) Caption(ctx context.Context, name string) *caption.CaptionDoc {
	return caption.Caption(s.record(name), s.sidecars.Text(ctx, name), s.cfg.Gallery.Photographer)
}

// Document returns the document of the given kind. A nil document with a
// nil error means the image has nothing to show.
func (s *Service) Document(ctx context.Context, name, kind string) (any, error) {
	switch kind {
	case KindModal:
		if doc := s.Modal(ctx, name); doc != nil {
			return doc, nil
		}
	case KindCaption:
		if doc := s.Caption(ctx, name); doc != nil {
			return doc, nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil, nil
}

func (s *Service) record(name string) gallery.Record {
	if rec, ok := s.lib.Get(name); ok {
		return rec
	}
	return gallery.Record{Name: name}
}

// Watch refreshes files as they appear in a local folder until ctx is done.
// Folders that are not on the local filesystem are not watched.
func (s *Service) Watch(ctx context.Context) error {
	dir, ok := s.folder.LocalDir()
	if !ok {
		s.log.Info("folder is not local, not watching", "folder", s.folder.URI())
		return nil
	}
	w, err := gallery.NewWatcher(dir, s.cfg.Gallery.ExcludeSuffixes, s.log)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return err
	}

	go func() {
		defer w.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case name, ok := <-w.Events:
				if !ok {
					return
				}
				if _, err := s.Refresh(ctx, []string{name}); err != nil {
					s.log.Warn("refresh failed", "file", name, "error", err)
				}
			}
		}
	}()
	return nil
}

// Close waits for a running pass and releases the cache and folder.
func (s *Service) Close() error {
	if s.resolver != nil {
		s.resolver.Wait()
	}
	return errors.Join(s.cache.Close(), s.folder.Close())
}
