package security

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// SecurityConfig holds security configuration
type SecurityConfig struct {
	MaxInputLength int           `json:"max_input_length"`
	RequestTimeout time.Duration `json:"request_timeout"`
	EnableHSTS     bool          `json:"enable_hsts"`
	CSPReportURI   string        `json:"csp_report_uri"`
}

// DefaultSecurityConfig returns secure defaults
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxInputLength: 200,
		RequestTimeout: 30 * time.Second,
	}
}

// SecurityMiddleware bundles the HTTP hardening shared by every route
type SecurityMiddleware struct {
	config SecurityConfig
}

// NewSecurityMiddleware creates a new security middleware instance
func NewSecurityMiddleware(config SecurityConfig) *SecurityMiddleware {
	if config.MaxInputLength <= 0 {
		config.MaxInputLength = DefaultSecurityConfig().MaxInputLength
	}
	return &SecurityMiddleware{config: config}
}

// ValidateInput rejects profile input that cannot be a GitHub handle or
// profile URL. It does not check the handle's format or existence.
func (sm *SecurityMiddleware) ValidateInput(input string) error {
	if len(input) > sm.config.MaxInputLength {
		return fmt.Errorf("input exceeds maximum length of %d characters", sm.config.MaxInputLength)
	}

	if !utf8.ValidString(input) {
		return fmt.Errorf("input contains invalid UTF-8 encoding")
	}

	for _, r := range input {
		if r == 0 || (unicode.IsControl(r) && !unicode.IsSpace(r)) {
			return fmt.Errorf("input contains invalid characters")
		}
	}

	inputLower := strings.ToLower(input)
	for _, pattern := range []string{"<", ">", "\"", "javascript:", "data:", "vbscript:"} {
		if strings.Contains(inputLower, pattern) {
			return fmt.Errorf("input contains suspicious patterns")
		}
	}

	return nil
}

// ValidateContentType rejects bodies that are neither JSON nor forms
func (sm *SecurityMiddleware) ValidateContentType() gin.HandlerFunc {
	allowedTypes := []string{
		"application/json",
		"application/x-www-form-urlencoded",
		"multipart/form-data",
	}

	return func(c *gin.Context) {
		contentType := strings.ToLower(c.GetHeader("Content-Type"))

		if contentType != "" {
			found := false
			for _, allowed := range allowedTypes {
				if strings.Contains(contentType, allowed) {
					found = true
					break
				}
			}

			if !found {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"detail": "unsupported content type",
				})
				return
			}
		}

		c.Next()
	}
}

// RequestTimeout bounds the request context
func (sm *SecurityMiddleware) RequestTimeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sm.config.RequestTimeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), sm.config.RequestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Timeout", strconv.Itoa(int(sm.config.RequestTimeout.Seconds())))

		c.Next()
	}
}
