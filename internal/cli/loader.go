package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fetchr/internal/config"
	"github.com/roach88/fetchr/internal/fetcher"
	"github.com/roach88/fetchr/internal/freshness"
	"github.com/roach88/fetchr/internal/registry"
	"github.com/roach88/fetchr/internal/remote"
	"github.com/roach88/fetchr/internal/spec"
	"github.com/roach88/fetchr/internal/store"
)

// Error code constants, unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeConfig      = "E002" // Config file missing or invalid
	ErrCodeTypes       = "E003" // CUE type definitions failed to load
	ErrCodeSpecs       = "E004" // Specs file missing or invalid
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeStore       = "E006" // Store could not be opened
	ErrCodeRemote      = "E007" // Remote source misconfigured
	ErrCodeFetchFailed = "E101" // Fetch returned an error
	ErrCodeKeyFailed   = "E102" // Key could not be computed
	ErrCodeTestFailed  = "E_TEST_FAILED"
)

// Runtime is everything a command needs to fetch: the loaded config, the
// type registry, and a fetcher wired to the configured store and source.
type Runtime struct {
	Config   *config.Config
	Registry *registry.Registry
	Fetcher  *fetcher.Fetcher
	Logger   *slog.Logger

	backend store.Backend
}

// Close releases the store backend.
func (rt *Runtime) Close() error {
	if rt.backend == nil {
		return nil
	}
	return rt.backend.Close()
}

// LoadConfig reads the --config file, or returns the defaults when none
// was given.
func LoadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath == "" {
		return config.Default(), nil
	}
	return config.Load(opts.ConfigPath)
}

// NewLogger returns a text logger on w. --verbose forces debug level;
// otherwise the config's log_level applies.
func NewLogger(opts *RootOptions, cfg *config.Config, w io.Writer) *slog.Logger {
	level, err := cfg.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// LoadRegistry compiles the CUE definitions in dir and registers them.
func LoadRegistry(dir string) (*registry.Registry, error) {
	defs, err := registry.LoadDefinitions(dir)
	if err != nil {
		return nil, err
	}
	reg := registry.New()
	if err := reg.RegisterDefinitions(defs); err != nil {
		return nil, err
	}
	return reg, nil
}

// NewRuntime loads the config, types, store and source. Failures are
// *ExitError with ExitCommandError.
func NewRuntime(opts *RootOptions, logOut io.Writer) (*Runtime, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeConfig, err)
	}
	logger := NewLogger(opts, cfg, logOut)

	reg, err := LoadRegistry(cfg.TypesDir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeTypes, err)
	}

	backend, err := store.OpenBackend(cfg.Store.Backend, cfg.Store.DSN)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeStore, err)
	}

	fopts := []fetcher.Option{
		fetcher.WithClient(cfg.IsClient()),
		fetcher.WithFreshness(freshness.New(freshness.WithRate(cfg.Rate()))),
		fetcher.WithLogger(logger),
	}
	if cfg.Remote.BaseURL != "" {
		hopts := []remote.HTTPOption{remote.WithHTTPLogger(logger)}
		for _, k := range sortedHeaderKeys(cfg.Remote.Headers) {
			hopts = append(hopts, remote.WithHeader(k, cfg.Remote.Headers[k]))
		}
		src, err := remote.NewHTTPSource(cfg.Remote.BaseURL, hopts...)
		if err != nil {
			backend.Close()
			return nil, WrapExitError(ExitCommandError, ErrCodeRemote, err)
		}
		fopts = append(fopts, fetcher.WithSource(src))
	}

	f := fetcher.New(nil, reg,
		store.NewModelStore(backend, reg, store.WithLogger(logger)),
		store.NewCollectionStore(backend, store.WithLogger(logger)),
		fopts...,
	)
	return &Runtime{Config: cfg, Registry: reg, Fetcher: f, Logger: logger, backend: backend}, nil
}

// LoadSpecs reads a batch of specs from a .json, .yaml or .yml file.
func LoadSpecs(path string) (spec.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read specs file: %w", err)
	}

	var specs spec.Map
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &specs)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &specs)
	default:
		return nil, fmt.Errorf("unsupported specs file extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse specs file: %w", err)
	}
	if err := specs.Validate(); err != nil {
		return nil, err
	}
	return specs, nil
}

func sortedHeaderKeys(h map[string]string) []string {
	return slices.Sorted(maps.Keys(h))
}
