// Package config loads the command-line front end's YAML configuration.
package config

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/rainmeas/registry"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "rainmeas.yaml"

// Version orderings accepted by the ordering key.
const (
	OrderingLexicographic = "lexicographic"
	OrderingSemver        = "semver"
)

type Config struct {
	BaseURL     string        `yaml:"base_url"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	Ordering    string        `yaml:"ordering"`
	MaxRetries  int           `yaml:"max_retries"`
	RateLimit   RateLimit     `yaml:"rate_limit"`
	Log         Log           `yaml:"log"`
}

// RateLimit paces registry requests. RPS 0 disables limiting.
type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type Log struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		BaseURL:     registry.DefaultURL,
		UserAgent:   "rainmeas-registry",
		Timeout:     30 * time.Second,
		Concurrency: 8,
		Ordering:    OrderingLexicographic,
		Log:         Log{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	errBuilder := oops.Code("load_config_error").In("config").With("filePath", path)

	cfg := Default()
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return nil, errBuilder.Wrapf(err, "file open error")
	}
	defer f.Close()

	if err = yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errBuilder.Wrapf(err, "failed to decode the file")
	}

	if err = cfg.Validate(); err != nil {
		return nil, errBuilder.Wrapf(err, "invalid configuration")
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	errBuilder := oops.In("config")
	switch c.Ordering {
	case OrderingLexicographic, OrderingSemver:
	default:
		return errBuilder.With("ordering", c.Ordering).
			Errorf("ordering must be %q or %q", OrderingLexicographic, OrderingSemver)
	}
	if c.Timeout < 0 {
		return errBuilder.With("timeout", c.Timeout).Errorf("timeout must not be negative")
	}
	if c.Concurrency < 0 {
		return errBuilder.With("concurrency", c.Concurrency).Errorf("concurrency must not be negative")
	}
	if c.MaxRetries < 0 {
		return errBuilder.With("max_retries", c.MaxRetries).Errorf("max_retries must not be negative")
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errBuilder.With("rps", c.RateLimit.RPS, "burst", c.RateLimit.Burst).
			Errorf("rate_limit values must not be negative")
	}
	if _, err := c.LogLevel(); err != nil {
		return errBuilder.With("level", c.Log.Level).Wrapf(err, "invalid log level")
	}
	return nil
}

// LogLevel parses Log.Level. An empty level means info.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(c.Log.Level))
	return level, err
}

// VersionOrdering returns the ordering named by the ordering key.
func (c *Config) VersionOrdering() registry.Ordering {
	if c.Ordering == OrderingSemver {
		return registry.SemanticOrdering{}
	}
	return registry.LexicographicOrdering{}
}
