// Package resolver runs background reverse-geocode passes over the records
// of a gallery library. At most one pass runs at a time.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"artframe/internal/exiftag"
	"artframe/internal/gallery"
	"artframe/internal/geo"
	"artframe/internal/geocache"
	"artframe/internal/logging"
)

// History records pass outcomes. storage.Store satisfies it.
type History interface {
	RecordPassStart(ctx context.Context, id string, files int) error
	RecordPassResult(ctx context.Context, id, status string, stats map[string]any, errMsg string) error
}

// Options tune a Resolver. Zero values are usable.
type Options struct {
	// Cooldown is the pause after a file's lookup timed out.
	Cooldown time.Duration
	// MergeOnSave keeps cache entries loaded at pass start for files outside
	// the working set when the cache is written back.
	MergeOnSave bool
	Logger      *slog.Logger
	History     History
	// Sleep replaces the cooldown wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Event reports a file whose address state changed during a pass.
type Event struct {
	PassID string
	File   string
	State  gallery.AddressState
}

// Stats summarizes a pass.
type Stats struct {
	Files         int `json:"files"`
	Merged        int `json:"merged"`
	Skipped       int `json:"skipped"`
	Requests      int `json:"requests"`
	Resolved      int `json:"resolved"`
	NoAddress     int `json:"no_address"`
	NoCoordinates int `json:"no_coordinates"`
	Timeouts      int `json:"timeouts"`
	Failed        int `json:"failed"`
	Saved         int `json:"saved"`
}

func (s Stats) fields() map[string]any {
	return map[string]any{
		"files":          s.Files,
		"merged":         s.Merged,
		"skipped":        s.Skipped,
		"requests":       s.Requests,
		"resolved":       s.Resolved,
		"no_address":     s.NoAddress,
		"no_coordinates": s.NoCoordinates,
		"timeouts":       s.Timeouts,
		"failed":         s.Failed,
		"saved":          s.Saved,
	}
}

// Pass is a handle on a running or finished resolution pass.
type Pass struct {
	ID    string
	done  chan struct{}
	stats Stats
	err   error
}

// Done is closed when the pass has finished and saved the cache.
func (p *Pass) Done() <-chan struct{} { return p.done }

// Stats returns the pass summary. It is only meaningful after Done.
func (p *Pass) Stats() Stats { return p.stats }

// Err returns the context error when the pass was cancelled.
func (p *Pass) Err() error { return p.err }

// Resolver looks up addresses for library records that have GPS data and
// persists the successes to a cache.
type Resolver struct {
	lib   *gallery.Library
	geo   geo.Reverser
	cache geocache.Cache
	opts  Options
	log   *slog.Logger

	mu     sync.Mutex
	active *Pass
	last   *Pass
	wg     sync.WaitGroup

	subMu     sync.Mutex
	subs      map[int]chan Event
	nextSubID int
}

// New returns a resolver writing into lib.
func New(lib *gallery.Library, reverser geo.Reverser, cache geocache.Cache, opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	return &Resolver{
		lib:   lib,
		geo:   reverser,
		cache: cache,
		opts:  opts,
		log:   logger,
		subs:  make(map[int]chan Event),
	}
}

// Start begins a pass over files unless one is already running, in which
// case the running pass is returned and started is false. files is copied.
// The pass stops between files when ctx is cancelled.
func (r *Resolver) Start(ctx context.Context, files []string) (p *Pass, started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return r.active, false
	}
	p = &Pass{ID: uuid.NewString(), done: make(chan struct{})}
	r.active = p
	files = append([]string(nil), files...)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, p, files)

		r.mu.Lock()
		r.active = nil
		r.last = p
		r.mu.Unlock()
		close(p.done)
	}()
	return p, true
}

// Run starts a pass, or joins the running one, and waits for it. A pass
// started here is always waited for so that its cache save completes even
// when ctx is cancelled.
func (r *Resolver) Run(ctx context.Context, files []string) (Stats, error) {
	p, started := r.Start(ctx, files)
	if started {
		<-p.Done()
		return p.Stats(), p.Err()
	}
	select {
	case <-p.Done():
		return p.Stats(), p.Err()
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Running reports whether a pass is in progress.
func (r *Resolver) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Last returns the most recently finished pass, or nil.
func (r *Resolver) Last() *Pass {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Wait blocks until no pass goroutine is running.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// Subscribe returns a channel of state changes and an unsubscribe function.
func (r *Resolver) Subscribe() (<-chan Event, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	id := r.nextSubID
	r.nextSubID++
	ch := make(chan Event, 16)
	r.subs[id] = ch
	unsub := func() {
		r.subMu.Lock()
		if c, ok := r.subs[id]; ok {
			close(c)
			delete(r.subs, id)
		}
		r.subMu.Unlock()
	}
	return ch, unsub
}

func (r *Resolver) broadcast(ev Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for id, ch := range r.subs {
		select {
		case ch <- ev:
		default:
			r.log.Warn("event channel full", "subscriber", id, "file", ev.File)
		}
	}
}

func (r *Resolver) run(ctx context.Context, p *Pass, files []string) {
	start := time.Now()
	st := &p.stats
	st.Files = len(files)
	logging.LogPassStart(r.log, p.ID, len(files))
	if r.opts.History != nil {
		if err := r.opts.History.RecordPassStart(context.WithoutCancel(ctx), p.ID, len(files)); err != nil {
			r.log.Warn("error recording pass", "id", p.ID, "error", err)
		}
	}

	loaded, err := r.cache.Load(ctx)
	if err != nil {
		r.log.Warn("error loading geocode cache", "error", err)
		loaded = nil
	}
	st.Merged = r.lib.Merge(loaded)

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			p.err = err
			break
		}
		r.resolve(ctx, p, name)
	}

	r.save(ctx, p, files, loaded)

	duration := time.Since(start)
	status := "completed"
	errMsg := ""
	if p.err != nil {
		status = "cancelled"
		errMsg = p.err.Error()
		logging.LogPassError(r.log, p.ID, duration, p.err, st.fields())
	} else {
		logging.LogPassComplete(r.log, p.ID, duration, st.fields())
	}
	if r.opts.History != nil {
		if err := r.opts.History.RecordPassResult(context.WithoutCancel(ctx), p.ID, status, st.fields(), errMsg); err != nil {
			r.log.Warn("error recording pass", "id", p.ID, "error", err)
		}
	}
}

func (r *Resolver) resolve(ctx context.Context, p *Pass, name string) {
	st := &p.stats
	rec, ok := r.lib.Get(name)
	if !ok || rec.HasAddressKey() {
		st.Skipped++
		return
	}

	gps, _ := rec.Tags["GPSInfo"].(exiftag.GPS)
	lat, lon, ok := geo.ToDecimal(gps)
	if !ok || lat == 0 || lon == 0 {
		r.log.Info("NO address found", "file", name)
		r.log.Debug("incomplete GPS block", "file", name, "tags", gpsNames(gps))
		r.lib.MarkNone(name)
		st.NoCoordinates++
		r.broadcast(Event{PassID: p.ID, File: name, State: gallery.AddressNone})
		return
	}

	r.log.Info("getting GPS data", "file", name, "lat", lat, "lon", lon)
	st.Requests++
	payload, err := r.geo.Reverse(ctx, lat, lon)
	switch {
	case errors.Is(err, geo.ErrTimeout):
		st.Timeouts++
		r.log.Warn("geocode failed", "file", name, "error", err)
		if err := r.opts.Sleep(ctx, r.opts.Cooldown); err != nil {
			r.log.Debug("cooldown interrupted", "file", name)
		}
	case err != nil:
		st.Failed++
		r.log.Warn("geocode failed", "file", name, "error", err)
	case payload == nil:
		r.log.Info("NO address found", "file", name)
		r.lib.MarkNone(name)
		st.NoAddress++
		r.broadcast(Event{PassID: p.ID, File: name, State: gallery.AddressNone})
	default:
		r.lib.SetAddress(name, payload)
		st.Resolved++
		r.log.Debug("address resolved", "file", name)
		r.broadcast(Event{PassID: p.ID, File: name, State: gallery.AddressResolved})
	}
}

// save writes the resolved addresses of the working set. Without
// MergeOnSave, entries for other files are dropped from the cache.
func (r *Resolver) save(ctx context.Context, p *Pass, files []string, loaded geocache.Entries) {
	entries := geocache.Entries(r.lib.Resolved(files))
	if r.opts.MergeOnSave {
		inSet := make(map[string]bool, len(files))
		for _, f := range files {
			inSet[f] = true
		}
		for name, payload := range loaded {
			if _, ok := entries[name]; !ok && !inSet[name] {
				entries[name] = payload
			}
		}
	}

	if err := r.cache.Save(context.WithoutCancel(ctx), entries); err != nil {
		r.log.Warn("error saving geocode cache", "error", err)
		return
	}
	p.stats.Saved = len(entries)
	r.log.Debug("geocode cache saved", "entries", len(entries))
}

func gpsNames(gps exiftag.GPS) []string {
	names := make([]string, 0, len(gps))
	for id := range gps {
		names = append(names, exiftag.GPSTagName(id))
	}
	slices.Sort(names)
	return names
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
