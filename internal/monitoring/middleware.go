package monitoring

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware propagates or assigns a request ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// MonitoringMiddleware records metrics and logs every request
func MonitoringMiddleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		method := c.Request.Method
		path := c.Request.URL.Path

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(method, route, statusCode, duration)

		logger.RequestLogger(method, path, c.ClientIP(), c.GetHeader("User-Agent"), statusCode, duration)

		for _, err := range c.Errors {
			logger.APIErrorLogger(err.Err, method, path, c.ClientIP(), statusCode)
		}

		if duration > 5*time.Second {
			logger.Warn("Slow request", "path", path, "duration_ms", duration.Milliseconds())
		}
	}
}

// SecurityMonitoringMiddleware flags requests from well-known scanners
func SecurityMonitoringMiddleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userAgent := c.GetHeader("User-Agent")
		if containsSuspiciousUserAgent(userAgent) {
			logger.SecurityLogger("suspicious_user_agent", c.ClientIP(), userAgent, map[string]interface{}{
				"path": c.Request.URL.Path,
			})
		}

		c.Next()
	}
}

func containsSuspiciousUserAgent(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, agent := range []string{"sqlmap", "nmap", "masscan", "zmap", "dirbuster", "gobuster", "nikto", "acunetix"} {
		if strings.Contains(ua, agent) {
			return true
		}
	}
	return false
}
