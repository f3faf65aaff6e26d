package gallery

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports image files created or rewritten in a local folder.
type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	dir     string
	exclude []string
	done    chan bool
	log     *slog.Logger
}

// NewWatcher creates a watcher for dir. Names ending in one of exclude are
// not reported.
func NewWatcher(dir string, exclude []string, logger *slog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		watcher: watcher,
		Events:  make(chan string, 100),
		dir:     dir,
		exclude: exclude,
		done:    make(chan bool),
		log:     logger,
	}, nil
}

// Start begins monitoring the folder.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.log.Info("watching folder", "dir", w.dir)

	go w.processEvents()
	return nil
}

// Stop stops the watcher and closes Events.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	defer close(w.Events)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".attrs") || excluded(name, w.exclude) {
				continue
			}

			select {
			case w.Events <- name:
			case <-w.done:
				return
			default:
				w.log.Warn("event buffer full, dropping event", "file", name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("folder watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}
