package gallery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"

	"artframe/internal/exiftag"
)

// Folder is an image folder addressed through a gocloud blob bucket. Local
// directories are opened with the file:// driver.
type Folder struct {
	bucket   *blob.Bucket
	uri      string
	localDir string
	exclude  []string
	log      *slog.Logger
}

// OpenFolder opens location, which is either a local path or a bucket URL
// such as file:///srv/pictures. Drivers other than fileblob must be
// registered by the caller.
func OpenFolder(ctx context.Context, location string, exclude []string, logger *slog.Logger) (*Folder, error) {
	uri, local, err := bucketURI(location)
	if err != nil {
		return nil, err
	}
	bucket, err := blob.OpenBucket(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("open folder %s: %w", uri, err)
	}
	f := NewFolder(bucket, exclude, logger)
	f.uri = uri
	f.localDir = local
	return f, nil
}

// NewFolder wraps an open bucket.
func NewFolder(bucket *blob.Bucket, exclude []string, logger *slog.Logger) *Folder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Folder{bucket: bucket, exclude: exclude, log: logger}
}

func bucketURI(location string) (uri, local string, err error) {
	if strings.Contains(location, "://") {
		u, err := url.Parse(location)
		if err != nil {
			return "", "", fmt.Errorf("parse folder url: %w", err)
		}
		if u.Scheme == "file" {
			local = filepath.FromSlash(u.Path)
		}
		return location, local, nil
	}
	abs, err := filepath.Abs(location)
	if err != nil {
		return "", "", err
	}
	return "file://" + filepath.ToSlash(abs), abs, nil
}

// URI returns the bucket URL the folder was opened with.
func (f *Folder) URI() string { return f.uri }

// LocalDir returns the directory backing the folder when it is on the local
// filesystem.
func (f *Folder) LocalDir() (string, bool) {
	return f.localDir, f.localDir != ""
}

// Excluded reports whether name ends in one of the reserved non-image
// suffixes. The comparison ignores case.
func (f *Folder) Excluded(name string) bool {
	return excluded(name, f.exclude)
}

func excluded(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// List returns the image names at the top level of the folder, sorted.
func (f *Folder) List(ctx context.Context) ([]string, error) {
	iter := f.bucket.List(&blob.ListOptions{Delimiter: "/"})

	var names []string
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list folder: %w", err)
		}
		if obj.IsDir || f.Excluded(obj.Key) {
			continue
		}
		names = append(names, obj.Key)
	}
	sort.Strings(names)
	return names, nil
}

// ReadTags reads the raw EXIF tags of name. A file without EXIF yields an
// empty map and no error.
func (f *Folder) ReadTags(ctx context.Context, name string) (exiftag.RawTags, error) {
	r, err := f.bucket.NewReader(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer r.Close()

	raw, err := exiftag.ReadTags(r)
	if err != nil {
		f.log.Debug("no exif data", "file", name, "error", err)
	}
	return raw, nil
}

// ModTime returns the modification time of key.
func (f *Folder) ModTime(ctx context.Context, key string) (time.Time, error) {
	attrs, err := f.bucket.Attributes(ctx, key)
	if err != nil {
		return time.Time{}, err
	}
	return attrs.ModTime, nil
}

// ReadAll returns the contents of key.
func (f *Folder) ReadAll(ctx context.Context, key string) ([]byte, error) {
	return f.bucket.ReadAll(ctx, key)
}

// Close releases the bucket.
func (f *Folder) Close() error {
	if f.bucket == nil {
		return nil
	}
	return f.bucket.Close()
}
