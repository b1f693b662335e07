package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "repolens"

// Backend call outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeBackendError = "backend_error"
	OutcomePayloadError = "payload_error"
	OutcomeNetworkError = "network_error"
)

// Metrics owns a private Prometheus registry so that several instances can
// coexist in one process (tests build one per router). All methods are safe
// on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	backendCalls   *prometheus.CounterVec
	backendLatency prometheus.Histogram

	viewTransitions *prometheus.CounterVec
	staleDiscarded  prometheus.Counter
	screensOpen     prometheus.Gauge

	analysesServed *prometheus.CounterVec
	githubCalls    *prometheus.CounterVec
	llmCalls       *prometheus.CounterVec

	rateLimitBlocks    prometheus.Counter
	rateLimitFallbacks prometheus.Counter
}

// NewMetrics registers every collector on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		backendCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Calls to the analysis backend by outcome.",
		}, []string{"outcome"}),
		backendLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Latency of calls to the analysis backend.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		viewTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "transitions_total",
			Help:      "Results screen view state transitions by target state.",
		}, []string{"state"}),
		staleDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_responses_discarded_total",
			Help:      "Backend responses dropped because their screen moved to another identifier.",
		}),
		screensOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "screens_open",
			Help:      "Results screens currently tracked.",
		}),
		analysesServed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "analyses_total",
			Help:      "Analyses produced by the analysis API, by verdict.",
		}, []string{"verdict"}),
		githubCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "github",
			Name:      "calls_total",
			Help:      "GitHub REST calls by endpoint and success.",
		}, []string{"endpoint", "success"}),
		llmCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recruiter",
			Name:      "llm_calls_total",
			Help:      "LLM generations by provider and success.",
		}, []string{"provider", "success"}),
		rateLimitBlocks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "blocked_total",
			Help:      "Requests rejected by the analysis API rate limiter.",
		}),
		rateLimitFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "fallback_total",
			Help:      "Rate limit decisions served from memory instead of Redis.",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordBackendCall records one call to the analysis backend
func (m *Metrics) RecordBackendCall(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.backendCalls.WithLabelValues(outcome).Inc()
	m.backendLatency.Observe(duration.Seconds())
}

// RecordTransition counts a view state transition
func (m *Metrics) RecordTransition(state string) {
	if m == nil {
		return
	}
	m.viewTransitions.WithLabelValues(state).Inc()
}

// IncStaleDiscarded counts a discarded out-of-order response
func (m *Metrics) IncStaleDiscarded() {
	if m == nil {
		return
	}
	m.staleDiscarded.Inc()
}

// SetScreensOpen reports the number of tracked results screens
func (m *Metrics) SetScreensOpen(n int) {
	if m == nil {
		return
	}
	m.screensOpen.Set(float64(n))
}

// IncAnalysis counts an analysis produced by the analysis API
func (m *Metrics) IncAnalysis(verdict string) {
	if m == nil {
		return
	}
	m.analysesServed.WithLabelValues(verdict).Inc()
}

// RecordGitHubCall counts a GitHub REST call
func (m *Metrics) RecordGitHubCall(endpoint string, success bool) {
	if m == nil {
		return
	}
	m.githubCalls.WithLabelValues(endpoint, strconv.FormatBool(success)).Inc()
}

// RecordLLMCall counts an LLM generation
func (m *Metrics) RecordLLMCall(provider string, success bool) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(provider, strconv.FormatBool(success)).Inc()
}

// IncRateLimitBlock counts a rejected request
func (m *Metrics) IncRateLimitBlock() {
	if m == nil {
		return
	}
	m.rateLimitBlocks.Inc()
}

// IncRateLimitFallback counts an in-memory rate limit decision
func (m *Metrics) IncRateLimitFallback() {
	if m == nil {
		return
	}
	m.rateLimitFallbacks.Inc()
}
