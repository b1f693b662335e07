package ratelimit

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
)

// IPRateLimitMiddleware rejects clients that exceed their per-minute budget
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			// never block on limiter failure
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			rl.metrics.IncRateLimitBlock()

			retryAfter := int(result.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			appErr := errors.NewRateLimitError((time.Duration(retryAfter) * time.Second).String())
			errors.LogError(c, appErr)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
			return
		}

		c.Next()
	}
}
