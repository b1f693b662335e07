package config

import "time"

// Config holds runtime settings for the server. Keys are flat snake_case so
// REPOLENS_BACKEND_URL maps onto backend_url.
type Config struct {
	Addr     string `koanf:"addr"`
	LogLevel string `koanf:"log_level"`

	// Results screen
	BackendURL     string        `koanf:"backend_url"`
	BackendTimeout time.Duration `koanf:"backend_timeout"`
	RenderWait     time.Duration `koanf:"render_wait"`
	ScreenTTL      time.Duration `koanf:"screen_ttl"`
	MaxInputLength int           `koanf:"max_input_length"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// Analysis API
	AnalyzerEnabled bool   `koanf:"analyzer_enabled"`
	GitHubAPIURL    string `koanf:"github_api_url"`
	GitHubToken     string `koanf:"github_token"`
	GeminiAPIKey    string `koanf:"gemini_api_key"`
	GeminiModel     string `koanf:"gemini_model"`
	OpenAIAPIKey    string `koanf:"openai_api_key"`
	OpenAIBaseURL   string `koanf:"openai_base_url"`
	OpenAIModel     string `koanf:"openai_model"`
	RateLimitPerMin int    `koanf:"rate_limit_per_min"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// New returns a Config with defaults
func New() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		BackendURL:      "http://localhost:8000",
		BackendTimeout:  60 * time.Second,
		RenderWait:      2 * time.Second,
		ScreenTTL:       10 * time.Minute,
		MaxInputLength:  200,
		RequestTimeout:  30 * time.Second,
		AnalyzerEnabled: false,
		GitHubAPIURL:    "https://api.github.com",
		GeminiModel:     "gemini-2.5-flash",
		OpenAIModel:     "gpt-4o-mini",
		RateLimitPerMin: 10,
	}
}
