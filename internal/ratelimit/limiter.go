package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin int           // analyses per IP per minute
	Burst         int           // extra requests allowed at once; defaults to IPLimitPerMin
	IdleTTL       time.Duration // in-memory limiters unused this long are dropped
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin: 10,
		Burst:         10,
		IdleTTL:       30 * time.Minute,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackLimiter struct {
	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen time.Time
}

// RateLimiter limits per key with Redis when available and in memory otherwise
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics
	now          func() time.Time

	fallbackLimiters *xsync.MapOf[string, *fallbackLimiter]
}

// NewRateLimiter creates a new rate limiter. redisClient may be nil or disabled.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	if config.IPLimitPerMin <= 0 {
		config.IPLimitPerMin = DefaultConfig().IPLimitPerMin
	}
	if config.Burst <= 0 {
		config.Burst = config.IPLimitPerMin
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig().IdleTTL
	}

	rl := &RateLimiter{
		redisClient:      redisClient,
		config:           config,
		metrics:          metrics,
		now:              time.Now,
		fallbackLimiters: xsync.NewMapOf[string, *fallbackLimiter](),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Info("Using in-memory rate limiting")
	}

	return rl
}

// AllowIP checks whether ip may start another analysis
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	key := fmt.Sprintf("ratelimit:analyze:ip:%s", ip)
	return rl.allow(ctx, key, rl.config.IPLimitPerMin, time.Minute)
}

func (rl *RateLimiter) allow(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	if rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, limit, period)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		rl.metrics.IncRateLimitFallback()
	}

	return rl.allowFallback(key, limit, period), nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit,
		Burst:  rl.config.Burst,
		Period: period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    rl.now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

// allowFallback uses a token bucket per key refilling at limit per period
func (rl *RateLimiter) allowFallback(key string, limit int, period time.Duration) *Result {
	now := rl.now()
	entry, _ := rl.fallbackLimiters.LoadOrCompute(key, func() *fallbackLimiter {
		every := rate.Every(period / time.Duration(limit))
		return &fallbackLimiter{limiter: rate.NewLimiter(every, rl.config.Burst)}
	})

	entry.mu.Lock()
	entry.lastSeen = now
	entry.mu.Unlock()

	reservation := entry.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	allowed := reservation.OK() && delay == 0
	if !allowed {
		reservation.CancelAt(now)
	}

	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(period),
	}
	if !allowed {
		if delay <= 0 {
			delay = period
		}
		result.RetryAfter = delay
		result.ResetAt = now.Add(delay)
	}

	return result
}

// Sweep drops in-memory limiters idle for longer than IdleTTL
func (rl *RateLimiter) Sweep(now time.Time) int {
	removed := 0
	rl.fallbackLimiters.Range(func(key string, entry *fallbackLimiter) bool {
		entry.mu.Lock()
		idle := now.Sub(entry.lastSeen)
		entry.mu.Unlock()

		if idle > rl.config.IdleTTL {
			rl.fallbackLimiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Run sweeps idle limiters until ctx is done
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.config.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := rl.Sweep(now); removed > 0 {
				slog.Debug("Cleaned up fallback rate limiters", "removed", removed)
			}
		}
	}
}

// Stats reports limiter state for the health endpoint
func (rl *RateLimiter) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"redis_enabled":     rl.redisClient.IsEnabled(),
		"fallback_limiters": rl.fallbackLimiters.Size(),
	}
	if rl.redisClient.IsEnabled() {
		stats["redis_pool"] = rl.redisClient.PoolStats()
	}
	return stats
}
