package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/gin-gonic/gin"
)

const nonceKey = "csp-nonce"

// GenerateNonce generates a cryptographically secure random nonce
func GenerateNonce() (string, error) {
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(nonceBytes), nil
}

// CSP generates a per-request nonce, stores it for templates and sets the
// Content-Security-Policy header.
func (sm *SecurityMiddleware) CSP() gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce, err := GenerateNonce()
		if err != nil {
			c.AbortWithStatusJSON(500, gin.H{"detail": "internal server error"})
			return
		}

		c.Set(nonceKey, nonce)

		policy := buildCSPPolicy(nonce)
		c.Header("Content-Security-Policy", policy)

		if sm.config.CSPReportURI != "" {
			c.Header("Content-Security-Policy-Report-Only", policy+"; report-uri "+sm.config.CSPReportURI)
		}

		c.Next()
	}
}

// GetNonce retrieves the nonce from the Gin context
func GetNonce(c *gin.Context) string {
	if nonce, exists := c.Get(nonceKey); exists {
		if nonceStr, ok := nonce.(string); ok {
			return nonceStr
		}
	}
	return ""
}

// Avatars are served by GitHub, hence https: for images.
func buildCSPPolicy(nonce string) string {
	return fmt.Sprintf(
		"default-src 'self'; "+
			"script-src 'self' 'nonce-%s'; "+
			"style-src 'self' 'nonce-%s'; "+
			"img-src 'self' data: https:; "+
			"font-src 'self' data:; "+
			"connect-src 'self'; "+
			"frame-ancestors 'none'; "+
			"base-uri 'self'; "+
			"form-action 'self'",
		nonce, nonce,
	)
}
