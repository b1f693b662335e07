package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
)

const envPrefix = "REPOLENS_"

// Load builds a Config by layering defaults, an optional YAML file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if REPOLENS_CONFIG is set
//  3. env (prefix REPOLENS_)
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("failed to read config file %s", path), err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.NewConfigurationError("failed to read environment", err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.NewConfigurationError("failed to decode configuration", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.NewConfigurationError("addr must not be empty", nil)
	}

	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.NewConfigurationError(fmt.Sprintf("backend_url %q is not an absolute URL", c.BackendURL), err)
	}

	if c.BackendTimeout <= 0 {
		return errors.NewConfigurationError("backend_timeout must be positive", nil)
	}
	if c.RenderWait < 0 {
		return errors.NewConfigurationError("render_wait must not be negative", nil)
	}
	if c.ScreenTTL <= 0 {
		return errors.NewConfigurationError("screen_ttl must be positive", nil)
	}
	if c.MaxInputLength <= 0 {
		return errors.NewConfigurationError("max_input_length must be positive", nil)
	}

	if c.AnalyzerEnabled {
		if c.GitHubAPIURL == "" {
			return errors.NewConfigurationError("github_api_url is required when analyzer_enabled is set", nil)
		}
		if c.RateLimitPerMin <= 0 {
			return errors.NewConfigurationError("rate_limit_per_min must be positive", nil)
		}
	}

	return nil
}

// BackendBase returns backend_url without a trailing slash
func (c *Config) BackendBase() string {
	return strings.TrimRight(c.BackendURL, "/")
}
