package gallery

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"gocloud.dev/gcerrors"
)

// Text holds caption defaults read from a sidecar file. Known keys are
// header, description, details, time, location, credit and photographer.
type Text map[string]string

// Get returns the value for key, or "".
func (t Text) Get(key string) string {
	return t[key]
}

var errNoSidecar = errors.New("no sidecar")

type sidecarEntry struct {
	key     string
	modTime time.Time
	text    Text
}

// Sidecars reads the JSON text files that sit next to images: img.jpg may
// have img.TXT or img.txt. Files are re-read only when their modification
// time changes.
type Sidecars struct {
	folder *Folder
	log    *slog.Logger

	mu    sync.Mutex
	cache map[string]sidecarEntry
}

// NewSidecars returns a reader over folder.
func NewSidecars(folder *Folder, logger *slog.Logger) *Sidecars {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sidecars{folder: folder, log: logger, cache: make(map[string]sidecarEntry)}
}

// Text returns the defaults for image. Missing or malformed sidecars give
// an empty Text.
func (s *Sidecars) Text(ctx context.Context, image string) Text {
	key, modTime, err := s.locate(ctx, image)
	if err != nil {
		if !errors.Is(err, errNoSidecar) {
			s.log.Warn("sidecar lookup failed", "file", image, "error", err)
		}
		return Text{}
	}

	s.mu.Lock()
	entry, ok := s.cache[image]
	s.mu.Unlock()
	if ok && entry.key == key && entry.modTime.Equal(modTime) {
		return entry.text
	}

	data, err := s.folder.ReadAll(ctx, key)
	if err != nil {
		s.log.Warn("error reading sidecar", "file", key, "error", err)
		return Text{}
	}
	text, ok := parseText(data)
	if !ok {
		s.log.Warn("invalid sidecar json", "file", key)
		return Text{}
	}
	s.log.Debug("got text for image", "file", image, "text", text)

	s.mu.Lock()
	s.cache[image] = sidecarEntry{key: key, modTime: modTime, text: text}
	s.mu.Unlock()
	return text
}

func (s *Sidecars) locate(ctx context.Context, image string) (string, time.Time, error) {
	base := strings.TrimSuffix(image, path.Ext(image))
	for _, key := range []string{base + ".TXT", base + ".txt"} {
		mt, err := s.folder.ModTime(ctx, key)
		if err == nil {
			return key, mt, nil
		}
		if gcerrors.Code(err) != gcerrors.NotFound {
			return "", time.Time{}, err
		}
	}
	return "", time.Time{}, errNoSidecar
}

func parseText(data []byte) (Text, bool) {
	if !gjson.ValidBytes(data) {
		return nil, false
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, false
	}
	text := Text{}
	res.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.Null {
			text[k.String()] = v.String()
		}
		return true
	})
	return text, true
}
