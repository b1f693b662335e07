package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCompressedRouter() (*gin.Engine, *CompressionMiddleware) {
	gin.SetMode(gin.TestMode)
	cm := NewCompressionMiddleware(DefaultCompressionConfig())

	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/page", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(strings.Repeat("<p>score</p>", 200)))
	})
	r.GET("/tiny", func(c *gin.Context) {
		c.Header("Content-Length", "2")
		c.Data(http.StatusOK, "text/plain", []byte("ok"))
	})
	r.GET("/image", func(c *gin.Context) {
		c.Data(http.StatusOK, "image/png", []byte(strings.Repeat("x", 4096)))
	})
	return r, cm
}

func request(r http.Handler, path string, gzipOK bool) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if gzipOK {
		req.Header.Set("Accept-Encoding", "gzip, deflate")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestCompressesHTML(t *testing.T) {
	r, cm := newCompressedRouter()

	w := request(r, "/page", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("<p>score</p>", 200), string(body))

	stats := cm.GetStats()
	assert.Equal(t, int64(1), stats["compressed_requests"])
	assert.Less(t, stats["compression_ratio"].(float64), 1.0)
}

func TestSkipsCompression(t *testing.T) {
	r, _ := newCompressedRouter()

	tests := []struct {
		name   string
		path   string
		gzipOK bool
	}{
		{"client without gzip", "/page", false},
		{"below minimum size", "/tiny", true},
		{"binary content type", "/image", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(r, tt.path, tt.gzipOK)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Header().Get("Content-Encoding"))
		})
	}
}
