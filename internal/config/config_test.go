package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fetchr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.IsClient())
	assert.Equal(t, 3*time.Minute, cfg.Rate())
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
environment: client
checked_fresh_rate: 90s
store:
  backend: sqlite
  dsn: cache.db
remote:
  base_url: http://localhost:3030
  headers:
    Authorization: Bearer abc
types_dir: ./types
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.IsClient())
	assert.Equal(t, 90*time.Second, cfg.Rate())
	assert.Equal(t, StoreConfig{Backend: "sqlite", DSN: "cache.db"}, cfg.Store)
	assert.Equal(t, "http://localhost:3030", cfg.Remote.BaseURL)
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc"}, cfg.Remote.Headers)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "types"), cfg.TypesDir)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "environment: client\n"))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Minute, cfg.Rate())
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, EnvironmentServer, cfg.Environment)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{"unknown field", "enviroment: client\n", ""},
		{"bad duration", "checked_fresh_rate: soon\n", ""},
		{"bad environment", "environment: browser\n", "environment"},
		{"zero rate", "checked_fresh_rate: 0s\n", "checked_fresh_rate"},
		{"bad backend", "store: {backend: redis}\n", "store.backend"},
		{"relative base url", "remote: {base_url: /api}\n", "remote.base_url"},
		{"bad level", "log_level: loud\n", "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)

			var fe *FieldError
			if tt.field == "" {
				assert.False(t, errors.As(err, &fe))
				return
			}
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDuration_MarshalYAML(t *testing.T) {
	v, err := Duration(90 * time.Second).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", v)
}
