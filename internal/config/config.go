// Package config loads fetchr's YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fetchr/internal/freshness"
	"github.com/roach88/fetchr/internal/store"
)

// Execution environments.
const (
	EnvironmentServer = "server"
	EnvironmentClient = "client"
)

// Config is the top-level configuration file.
type Config struct {
	// Environment is "server" or "client". Client fetchers read from and
	// write to the cache by default.
	Environment string `yaml:"environment"`

	// CheckedFreshRate is the minimum interval between freshness checks
	// of one spec, as a Go duration ("3m").
	CheckedFreshRate Duration `yaml:"checked_fresh_rate"`

	Store  StoreConfig  `yaml:"store"`
	Remote RemoteConfig `yaml:"remote"`

	// TypesDir holds the CUE type definitions. Relative paths resolve
	// against the config file's directory.
	TypesDir string `yaml:"types_dir"`

	LogLevel string `yaml:"log_level"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

type RemoteConfig struct {
	BaseURL string            `yaml:"base_url"`
	Headers map[string]string `yaml:"headers"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Environment:      EnvironmentServer,
		CheckedFreshRate: Duration(freshness.DefaultCheckedFreshRate),
		Store: StoreConfig{
			Backend: store.BackendMemory,
		},
		TypesDir: "types",
		LogLevel: "info",
	}
}

// Load reads path over the defaults. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.TypesDir != "" && !filepath.IsAbs(cfg.TypesDir) {
		cfg.TypesDir = filepath.Join(filepath.Dir(path), cfg.TypesDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// FieldError names the offending field of an invalid config.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvironmentServer, EnvironmentClient:
	default:
		return &FieldError{Field: "environment", Message: fmt.Sprintf("must be %q or %q, got %q", EnvironmentServer, EnvironmentClient, c.Environment)}
	}
	if c.CheckedFreshRate <= 0 {
		return &FieldError{Field: "checked_fresh_rate", Message: "must be positive"}
	}
	switch c.Store.Backend {
	case "", store.BackendMemory, store.BackendSQLite:
	default:
		return &FieldError{Field: "store.backend", Message: fmt.Sprintf("unknown backend %q", c.Store.Backend)}
	}
	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || !u.IsAbs() {
			return &FieldError{Field: "remote.base_url", Message: fmt.Sprintf("must be an absolute URL, got %q", c.Remote.BaseURL)}
		}
	}
	if _, err := c.Level(); err != nil {
		return &FieldError{Field: "log_level", Message: err.Error()}
	}
	return nil
}

// IsClient reports whether the fetcher runs in the client environment.
func (c *Config) IsClient() bool {
	return c.Environment == EnvironmentClient
}

// Rate returns CheckedFreshRate as a time.Duration.
func (c *Config) Rate() time.Duration {
	return time.Duration(c.CheckedFreshRate)
}

// Level parses LogLevel. Empty means info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("unknown level %q", c.LogLevel)
	}
	return level, nil
}
