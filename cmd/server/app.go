package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/repolens/internal/adapters"
	"github.com/ZanzyTHEbar/repolens/internal/analyzer"
	"github.com/ZanzyTHEbar/repolens/internal/client"
	"github.com/ZanzyTHEbar/repolens/internal/config"
	"github.com/ZanzyTHEbar/repolens/internal/errors"
	"github.com/ZanzyTHEbar/repolens/internal/frontend"
	"github.com/ZanzyTHEbar/repolens/internal/lifecycle"
	"github.com/ZanzyTHEbar/repolens/internal/middleware"
	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
	"github.com/ZanzyTHEbar/repolens/internal/ratelimit"
	"github.com/ZanzyTHEbar/repolens/internal/recruiter"
	"github.com/ZanzyTHEbar/repolens/internal/security"
)

const version = "1.0.0"

// app is the assembled server and the resources it owns
type app struct {
	router   *gin.Engine
	gzip     *middleware.CompressionMiddleware
	registry *lifecycle.Registry
	limiter  *ratelimit.RateLimiter
	github   *adapters.GitHubAdapter
	redis    *ratelimit.RedisClient
	sweep    time.Duration
}

func newApp(ctx context.Context, cfg *config.Config, logger *monitoring.Logger, metrics *monitoring.Metrics) (*app, error) {
	a := &app{
		sweep: sweepInterval(cfg.ScreenTTL),
		gzip:  middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
	}

	backend := client.New(cfg.BackendBase(), cfg.BackendTimeout,
		client.WithLogger(logger),
		client.WithMetrics(metrics),
	)
	a.registry = lifecycle.NewRegistry(backend, cfg.ScreenTTL, logger, metrics)

	templates, err := frontend.LoadTemplates()
	if err != nil {
		return nil, errors.NewConfigurationError("failed to load templates", err)
	}

	sm := security.NewSecurityMiddleware(security.SecurityConfig{
		MaxInputLength: cfg.MaxInputLength,
		RequestTimeout: cfg.RequestTimeout,
	})

	r := gin.New()
	r.Use(errors.RecoveryHandler())
	r.Use(monitoring.RequestIDMiddleware())
	r.Use(monitoring.MonitoringMiddleware(metrics, logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(logger))
	r.Use(errors.ErrorHandler())
	r.Use(sm.SecurityHeaders())
	r.Use(sm.ValidateContentType())
	r.Use(a.gzip.Handler())

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	views := r.Group("", sm.CSP(), sm.RequestTimeout())
	ui := frontend.NewHandler(a.registry, templates, sm, logger, frontend.Config{
		RenderWait:     cfg.RenderWait,
		MaxInputLength: cfg.MaxInputLength,
	})
	if err := ui.Register(views); err != nil {
		return nil, err
	}

	if cfg.AnalyzerEnabled {
		if err := a.mountAnalyzer(ctx, r, cfg, logger, metrics); err != nil {
			return nil, err
		}
	}

	a.router = r
	return a, nil
}

func (a *app) mountAnalyzer(ctx context.Context, r gin.IRouter, cfg *config.Config, logger *monitoring.Logger, metrics *monitoring.Metrics) error {
	redisClient, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("Redis unavailable, rate limiting in memory", "error", err.Error())
	}
	a.redis = redisClient
	a.limiter = ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		IPLimitPerMin: cfg.RateLimitPerMin,
	}, metrics)

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return errors.NewConfigurationError("failed to initialize LLM provider", err)
	}
	if generator == nil {
		logger.Warn("No LLM provider configured, recruiter assessments use the fallback")
	}

	a.github = adapters.NewGitHubAdapter(cfg.GitHubAPIURL, cfg.GitHubToken, logger, metrics)
	service := analyzer.NewService(a.github, recruiter.New(generator, logger, metrics), logger, metrics)
	analyzer.NewHandler(service, a.limiter, cfg.BackendTimeout).Register(r)
	return nil
}

// newGenerator prefers Gemini, then any OpenAI-compatible endpoint.
// It returns nil when neither is configured.
func newGenerator(ctx context.Context, cfg *config.Config) (recruiter.Generator, error) {
	switch {
	case cfg.GeminiAPIKey != "":
		gen, err := recruiter.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case cfg.OpenAIAPIKey != "":
		gen, err := recruiter.NewOpenAIGenerator(ctx, cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, nil
	}
}

func (a *app) health(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
		"screens":   a.registry.Len(),
		"gzip":      a.gzip.GetStats(),
	}
	if a.limiter != nil {
		body["rate_limit"] = a.limiter.Stats()
	}
	if a.github != nil {
		body["github_pool"] = a.github.PoolStats()
	}
	if a.redis.Configured() {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := a.redis.HealthCheck(ctx); err != nil {
			// limiting still works in memory
			body["status"] = "degraded"
			body["redis"] = gin.H{"status": "unreachable", "error": err.Error()}
		} else {
			body["redis"] = gin.H{"status": "ok"}
		}
	}
	c.JSON(http.StatusOK, body)
}

// start launches the screen and limiter sweepers
func (a *app) start(ctx context.Context) {
	go a.registry.Run(ctx, a.sweep)
	if a.limiter != nil {
		go a.limiter.Run(ctx)
	}
}

func (a *app) close() {
	if a.github != nil {
		errors.SafeClose(a.github, "github adapter")
	}
	if a.redis != nil {
		errors.SafeClose(a.redis, "redis client")
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}
