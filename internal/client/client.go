package client

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
	"github.com/ZanzyTHEbar/repolens/internal/payload"
	"github.com/ZanzyTHEbar/repolens/internal/types"
)

const (
	analyzePath  = "/analyze"
	maxBodyBytes = 1 << 20
)

// AnalysisClient calls the analysis backend's analyze endpoint
type AnalysisClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *monitoring.Logger
	metrics    *monitoring.Metrics
}

// Option customises an AnalysisClient
type Option func(*AnalysisClient)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *AnalysisClient) {
		c.httpClient = hc
	}
}

// WithMetrics records backend outcomes on m
func WithMetrics(m *monitoring.Metrics) Option {
	return func(c *AnalysisClient) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for call logging
func WithLogger(l *monitoring.Logger) Option {
	return func(c *AnalysisClient) {
		c.logger = l
	}
}

// New creates a client for the backend rooted at baseURL
func New(baseURL string, timeout time.Duration, opts ...Option) *AnalysisClient {
	c := &AnalysisClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     monitoring.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze requests the analysis of identifier. Any non-2xx answer is a
// failure; its JSON "detail" string, when present, becomes the error's
// display message.
func (c *AnalysisClient) Analyze(ctx context.Context, identifier string) (*payload.AnalysisPayload, error) {
	endpoint := c.baseURL + analyzePath
	start := time.Now()

	reqBody, err := json.Marshal(types.AnalyzeRequest{Username: identifier})
	if err != nil {
		return nil, errors.NewInternalError("failed to encode analyze request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.NewConfigurationError(fmt.Sprintf("invalid backend url %q", c.baseURL), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(monitoring.OutcomeNetworkError, endpoint, 0, start)
		return nil, transportError(err)
	}
	defer errors.SafeClose(resp.Body, "analysis backend response body")

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.record(monitoring.OutcomeNetworkError, endpoint, resp.StatusCode, start)
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.record(monitoring.OutcomeBackendError, endpoint, resp.StatusCode, start)
		return nil, errors.NewBackendError(resp.StatusCode, detailOf(body))
	}

	result, err := payload.Decode(body)
	if err != nil {
		c.record(monitoring.OutcomePayloadError, endpoint, resp.StatusCode, start)
		return nil, err
	}

	if !result.MatchesIdentifier(identifier) {
		c.record(monitoring.OutcomePayloadError, endpoint, resp.StatusCode, start)
		return nil, errors.NewPayloadError(
			fmt.Sprintf("analysis result is for %q, not %q", result.User.Login, identifier), nil)
	}

	c.record(monitoring.OutcomeSuccess, endpoint, resp.StatusCode, start)
	return result, nil
}

func (c *AnalysisClient) record(outcome, endpoint string, status int, start time.Time) {
	duration := time.Since(start)
	c.metrics.RecordBackendCall(outcome, duration)
	c.logger.ExternalAPILogger("analysis_backend", http.MethodPost, endpoint, status, duration, outcome == monitoring.OutcomeSuccess)
}

// detailOf returns the "detail" string of a JSON failure body. Non-string
// details (validation arrays and the like) are ignored.
func detailOf(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	detail := gjson.GetBytes(body, "detail")
	if detail.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(detail.Str)
}

func transportError(err error) error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewTimeoutError("analysis backend timed out", err)
	}

	appErr := errors.ToAppError(err)
	if appErr.Category == errors.CategoryInternal {
		return errors.NewNetworkError("analysis backend unreachable", err)
	}
	return appErr
}
