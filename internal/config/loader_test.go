package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REPOLENS_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 2*time.Second, cfg.RenderWait)
	assert.False(t, cfg.AnalyzerEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REPOLENS_CONFIG", "")
	t.Setenv("REPOLENS_BACKEND_URL", "http://analysis.internal:9000/")
	t.Setenv("REPOLENS_RENDER_WAIT", "500ms")
	t.Setenv("REPOLENS_ANALYZER_ENABLED", "true")
	t.Setenv("REPOLENS_RATE_LIMIT_PER_MIN", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://analysis.internal:9000/", cfg.BackendURL)
	assert.Equal(t, "http://analysis.internal:9000", cfg.BackendBase())
	assert.Equal(t, 500*time.Millisecond, cfg.RenderWait)
	assert.True(t, cfg.AnalyzerEnabled)
	assert.Equal(t, 3, cfg.RateLimitPerMin)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repolens.yaml")
	content := "addr: \":9090\"\nlog_level: debug\nbackend_url: http://from-file:8000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("REPOLENS_CONFIG", path)
	t.Setenv("REPOLENS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "http://from-file:8000", cfg.BackendURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("REPOLENS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CategoryConfiguration, errors.ToAppError(err).Category)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty addr", func(c *Config) { c.Addr = " " }, false},
		{"relative backend url", func(c *Config) { c.BackendURL = "localhost:8000" }, false},
		{"zero backend timeout", func(c *Config) { c.BackendTimeout = 0 }, false},
		{"negative render wait", func(c *Config) { c.RenderWait = -time.Second }, false},
		{"zero render wait", func(c *Config) { c.RenderWait = 0 }, true},
		{"zero screen ttl", func(c *Config) { c.ScreenTTL = 0 }, false},
		{"analyzer without rate", func(c *Config) {
			c.AnalyzerEnabled = true
			c.RateLimitPerMin = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
