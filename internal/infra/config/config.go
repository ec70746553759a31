// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Repeat modes accepted in configuration.
const (
	RepeatOff = "off"
	RepeatOne = "one"
)

// Config represents the application configuration.
type Config struct {
	Store    StoreConfig             `yaml:"store"`
	Playback PlaybackConfig          `yaml:"playback"`
	Library  LibraryConfig           `yaml:"library"`
	Filters  map[string]FilterConfig `yaml:"filters"`
}

// StoreConfig represents playlist store configuration.
type StoreConfig struct {
	Path string `yaml:"path" default:"playlists.json" validate:"required"`
}

// PlaybackConfig represents playback configuration.
type PlaybackConfig struct {
	PollIntervalMs int     `yaml:"poll_interval_ms" default:"500" validate:"gte=50,lte=5000"`
	Volume         float64 `yaml:"volume" default:"0.7" validate:"gte=0,lte=1"`
	Shuffle        bool    `yaml:"shuffle"`
	Repeat         string  `yaml:"repeat" default:"off" validate:"oneof=off one"`
}

// LibraryConfig represents which files are accepted and how they are inspected.
type LibraryConfig struct {
	Extensions   []string `yaml:"extensions" default:"[\".mp3\"]" validate:"required,min=1,dive,startswith=."`
	SkipMetadata bool     `yaml:"skip_metadata"`
}

// FilterConfig represents an optional filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// An empty path yields the defaults. Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	var cfg Config

	// Defaults first so explicit zero values in the file (volume: 0) survive
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, err
	}

	cfg.Library.Extensions = normalizeExtensions(cfg.Library.Extensions)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	if v := os.Getenv("MIXTAPE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("MIXTAPE_VOLUME"); v != "" {
		vol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid MIXTAPE_VOLUME %q", v)
		}
		c.Playback.Volume = vol
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// PollInterval returns the track-finished poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Playback.PollIntervalMs) * time.Millisecond
}

// RepeatOne reports whether repeat-one starts enabled.
func (c *Config) RepeatOne() bool {
	return c.Playback.Repeat == RepeatOne
}

// IsFilterEnabled checks if an optional filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// FilterSettings returns the settings for a filter, or nil.
func (c *Config) FilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}

// IsAllowedExtension checks if path has one of the configured extensions.
func (c *Config) IsAllowedExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range c.Library.Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func normalizeExtensions(exts []string) []string {
	result := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		result = append(result, ext)
	}
	return result
}
