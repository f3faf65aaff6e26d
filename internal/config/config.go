package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultConfigPath = "~/.config/artframe/config.json"
	defaultEndpoint   = "https://nominatim.openstreetmap.org/reverse"
)

// Config holds user-editable settings for the gallery.
type Config struct {
	Gallery Gallery `json:"gallery"`
	Geocode Geocode `json:"geocode"`
	Cache   Cache   `json:"cache"`
	Server  Server  `json:"server"`
	Logging Logging `json:"logging"`
}

// Gallery configures the image folder and caption defaults.
type Gallery struct {
	Folder          string   `json:"folder"`           // local path or blob URL (file://, mem://)
	ExcludeSuffixes []string `json:"exclude_suffixes"` // names ending in these are not images
	Photographer    string   `json:"photographer"`     // default byline name
	UseExif         bool     `json:"use_exif"`
}

// Geocode controls the reverse-geocode client.
type Geocode struct {
	Enabled          bool    `json:"enabled"`
	Endpoint         string  `json:"endpoint"`
	UserAgent        string  `json:"user_agent"`
	TimeoutSeconds   float64 `json:"timeout_seconds"`
	MinDelaySeconds  float64 `json:"min_delay_seconds"`  // minimum gap between requests
	MaxRetries       int     `json:"max_retries"`        // retries after a timeout
	ErrorWaitSeconds float64 `json:"error_wait_seconds"` // wait before a retry
	CooldownSeconds  float64 `json:"cooldown_seconds"`   // pause after a file timed out
}

// Cache selects where resolved addresses are persisted.
type Cache struct {
	Backend      string `json:"backend"` // file, sqlite
	Path         string `json:"path"`
	DatabasePath string `json:"database_path"`
	MergeOnSave  bool   `json:"merge_on_save"` // keep entries for files outside the pass
}

// Server configures the HTTP listener.
type Server struct {
	Addr string `json:"addr"`
}

// Logging controls logging verbosity and destinations.
type Logging struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Format     string `json:"format"`      // text, json
	FileOutput bool   `json:"file_output"` // Enable file logging
	LogDir     string `json:"log_dir"`     // Directory for log files
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func (g Geocode) Timeout() time.Duration   { return seconds(g.TimeoutSeconds) }
func (g Geocode) MinDelay() time.Duration  { return seconds(g.MinDelaySeconds) }
func (g Geocode) ErrorWait() time.Duration { return seconds(g.ErrorWaitSeconds) }
func (g Geocode) Cooldown() time.Duration  { return seconds(g.CooldownSeconds) }

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	switch c.Cache.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("cache.backend %q: must be file or sqlite", c.Cache.Backend))
	}
	if c.Cache.Backend == "file" && c.Cache.Path == "" {
		errs = append(errs, errors.New("cache.path is required for the file backend"))
	}
	if c.Cache.Backend == "sqlite" && c.Cache.DatabasePath == "" {
		errs = append(errs, errors.New("cache.database_path is required for the sqlite backend"))
	}
	if c.Gallery.Folder == "" {
		errs = append(errs, errors.New("gallery.folder is required"))
	}
	g := c.Geocode
	for name, v := range map[string]float64{
		"timeout_seconds":    g.TimeoutSeconds,
		"min_delay_seconds":  g.MinDelaySeconds,
		"error_wait_seconds": g.ErrorWaitSeconds,
		"cooldown_seconds":   g.CooldownSeconds,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("geocode.%s must not be negative", name))
		}
	}
	if g.MaxRetries < 0 {
		errs = append(errs, errors.New("geocode.max_retries must not be negative"))
	}
	if g.Enabled && g.Endpoint == "" {
		errs = append(errs, errors.New("geocode.endpoint is required when geocoding is enabled"))
	}
	return errors.Join(errs...)
}

// Path returns $ARTFRAME_CONFIG, or the default config location.
func Path() string {
	if p := os.Getenv("ARTFRAME_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// Load reads configuration from disk, falling back to sensible defaults.
func Load() (*Config, error) {
	return LoadFile(Path())
}

// LoadFile reads configuration from path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	expanded, err := expandUser(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(expanded)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", expanded, err)
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Gallery: Gallery{
			Folder:          "./static",
			ExcludeSuffixes: []string{".txt"},
			UseExif:         true,
		},
		Geocode: Geocode{
			Enabled:          true,
			Endpoint:         defaultEndpoint,
			UserAgent:        "artframe-gallery",
			TimeoutSeconds:   20,
			MinDelaySeconds:  1.5,
			MaxRetries:       1,
			ErrorWaitSeconds: 5,
			CooldownSeconds:  5,
		},
		Cache: Cache{
			Backend:      "file",
			Path:         "./gps_data.json",
			DatabasePath: filepath.Join(os.TempDir(), "artframe.db"),
		},
		Server: Server{
			Addr: ":5000",
		},
		Logging: Logging{
			Level:      "info",
			Format:     "text",
			FileOutput: false,
			LogDir:     "./logs",
		},
	}
}

func expandUser(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if path == "~" {
		return home, nil
	}

	return filepath.Join(home, path[2:]), nil
}
