package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// PoolConfig sizes a ConnectionPool
type PoolConfig struct {
	MaxIdle        int
	MaxActive      int
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// ConnectionPool shares one tuned transport between callers, bounds the
// number of requests in flight and routes every request through a circuit
// breaker. Transport errors and 5xx answers count as breaker failures.
type ConnectionPool struct {
	config  PoolConfig
	client  *http.Client
	slots   chan struct{}
	breaker *CircuitBreaker
}

// PoolStats is a snapshot of pool usage
type PoolStats struct {
	Active       int    `json:"active"`
	MaxActive    int    `json:"max_active"`
	BreakerState string `json:"breaker_state"`
}

// NewConnectionPool creates a pool guarded by cb
func NewConnectionPool(config PoolConfig, cb *CircuitBreaker) *ConnectionPool {
	if config.MaxActive <= 0 {
		config.MaxActive = 10
	}
	if config.MaxIdle <= 0 {
		config.MaxIdle = config.MaxActive
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 90 * time.Second
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 30 * time.Second
	}
	if cb == nil {
		cb = NewCircuitBreaker(CircuitBreakerConfig{})
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          config.MaxIdle,
		MaxIdleConnsPerHost:   config.MaxIdle,
		MaxConnsPerHost:       config.MaxActive,
		IdleConnTimeout:       config.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: config.RequestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		config:  config,
		client:  &http.Client{Transport: transport, Timeout: config.RequestTimeout},
		slots:   make(chan struct{}, config.MaxActive),
		breaker: cb,
	}
}

// Do sends req once. It waits for a free slot until req's context is done.
func (cp *ConnectionPool) Do(req *http.Request) (*http.Response, error) {
	select {
	case cp.slots <- struct{}{}:
	case <-req.Context().Done():
		return nil, fmt.Errorf("connection pool exhausted: %w", req.Context().Err())
	}
	defer func() { <-cp.slots }()

	var resp *http.Response
	err := cp.breaker.Call(func() error {
		start := time.Now()

		var err error
		resp, err = cp.client.Do(req)
		duration := time.Since(start)
		if err != nil {
			slog.Warn("Request failed", "url", req.URL.Redacted(), "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		slog.Debug("Request completed", "url", req.URL.Redacted(), "status", resp.StatusCode, "duration_ms", duration.Milliseconds())
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("upstream responded with status %d", resp.StatusCode)
		}
		return nil
	})

	// 5xx answers are breaker failures but still the caller's to read
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

// DoRequest builds and sends a bodiless request
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return cp.Do(req)
}

// Stats returns pool usage
func (cp *ConnectionPool) Stats() PoolStats {
	return PoolStats{
		Active:       len(cp.slots),
		MaxActive:    cp.config.MaxActive,
		BreakerState: cp.breaker.State().String(),
	}
}

// Breaker returns the pool's circuit breaker
func (cp *ConnectionPool) Breaker() *CircuitBreaker {
	return cp.breaker
}

// Close drops idle keep-alive connections
func (cp *ConnectionPool) Close() error {
	cp.client.CloseIdleConnections()
	slog.Info("Connection pool closed")
	return nil
}
