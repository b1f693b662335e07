package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	MinSize          int      // responses with a smaller Content-Length are sent as is
	CompressionLevel int      // gzip level, 1-9
	ContentTypes     []string // content types to compress
}

// DefaultCompressionConfig returns the default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize:          1024,
		CompressionLevel: gzip.DefaultCompression,
		ContentTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"text/css",
			"image/svg+xml",
		},
	}
}

// CompressionMiddleware gzips HTML pages, JSON and stylesheets
type CompressionMiddleware struct {
	config CompressionConfig
	stats  CompressionStats
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	level := config.CompressionLevel
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}

	cm := &CompressionMiddleware{config: config}
	cm.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, level)
		return gz
	}
	return cm
}

// Handler returns the gin middleware
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !clientAcceptsGzip(c.Request) || c.Request.Header.Get("Range") != "" {
			c.Next()
			return
		}

		gzw := &gzipResponseWriter{ResponseWriter: c.Writer, cm: cm}
		c.Writer = gzw
		defer gzw.finish()

		c.Next()
	}
}

func clientAcceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

func (cm *CompressionMiddleware) shouldCompress(h http.Header, status int) bool {
	if status == http.StatusNoContent || status == http.StatusNotModified || status == http.StatusPartialContent {
		return false
	}
	if h.Get("Content-Encoding") != "" {
		return false
	}
	if n, err := strconv.Atoi(h.Get("Content-Length")); err == nil && n < cm.config.MinSize {
		return false
	}

	contentType := h.Get("Content-Type")
	for _, ct := range cm.config.ContentTypes {
		if strings.Contains(contentType, ct) {
			return true
		}
	}
	return false
}

// gzipResponseWriter decides on the first write, once the handler has set
// its headers, whether the body goes through gzip.
type gzipResponseWriter struct {
	gin.ResponseWriter
	cm *CompressionMiddleware

	decided  bool
	gz       *gzip.Writer
	original int64
}

func (gzw *gzipResponseWriter) decide() {
	if gzw.decided {
		return
	}
	gzw.decided = true

	h := gzw.Header()
	if !gzw.cm.shouldCompress(h, gzw.Status()) {
		return
	}

	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")

	gz := gzw.cm.pool.Get().(*gzip.Writer)
	gz.Reset(gzw.ResponseWriter)
	gzw.gz = gz
}

// Write writes data through the gzip writer when compressing
func (gzw *gzipResponseWriter) Write(data []byte) (int, error) {
	gzw.decide()
	gzw.original += int64(len(data))
	if gzw.gz == nil {
		return gzw.ResponseWriter.Write(data)
	}
	return gzw.gz.Write(data)
}

func (gzw *gzipResponseWriter) WriteString(s string) (int, error) {
	return gzw.Write([]byte(s))
}

// Flush flushes the gzip writer
func (gzw *gzipResponseWriter) Flush() {
	if gzw.gz != nil {
		_ = gzw.gz.Flush()
	}
	gzw.ResponseWriter.Flush()
}

func (gzw *gzipResponseWriter) finish() {
	if gzw.gz == nil {
		gzw.cm.stats.record(gzw.original, gzw.original, false)
		return
	}

	_ = gzw.gz.Close()
	gzw.gz.Reset(io.Discard)
	gzw.cm.pool.Put(gzw.gz)
	gzw.cm.stats.record(gzw.original, int64(gzw.ResponseWriter.Size()), true)
	gzw.gz = nil
}

// CompressionStats tracks compression statistics
type CompressionStats struct {
	totalRequests      atomic.Int64
	compressedRequests atomic.Int64
	totalBytes         atomic.Int64
	compressedBytes    atomic.Int64
}

func (cs *CompressionStats) record(originalSize, sentSize int64, compressed bool) {
	cs.totalRequests.Add(1)
	if compressed {
		cs.compressedRequests.Add(1)
		cs.totalBytes.Add(originalSize)
		cs.compressedBytes.Add(sentSize)
	}
}

// GetStats returns compression statistics for the health endpoint
func (cm *CompressionMiddleware) GetStats() map[string]interface{} {
	total := cm.stats.totalBytes.Load()
	compressed := cm.stats.compressedBytes.Load()

	ratio := float64(0)
	if total > 0 {
		ratio = float64(compressed) / float64(total)
	}

	return map[string]interface{}{
		"total_requests":      cm.stats.totalRequests.Load(),
		"compressed_requests": cm.stats.compressedRequests.Load(),
		"total_bytes":         total,
		"compressed_bytes":    compressed,
		"compression_ratio":   ratio,
	}
}
