package frontend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/repolens/internal/client"
	"github.com/ZanzyTHEbar/repolens/internal/lifecycle"
	"github.com/ZanzyTHEbar/repolens/internal/payload"
	"github.com/ZanzyTHEbar/repolens/internal/security"
)

func samplePayload(login string) *payload.AnalysisPayload {
	return &payload.AnalysisPayload{
		User: payload.User{Login: login, Name: "The Octocat", AvatarURL: "https://avatars.example/octocat.png"},
		Scores: payload.Scores{
			TechnicalDepth:  140,
			Consistency:     -5,
			Impact:          88,
			FirstImpression: 60,
			RecruiterScore:  90,
			PortfolioScore:  82,
		},
		Analysis: payload.Analysis{
			Verdict:         payload.VerdictShortlist,
			PersonalityType: "The Deep Diver",
			Strengths:       []string{"Clear READMEs"},
			RedFlags:        []string{"Few tests"},
			Roadmap:         []string{"Pin projects", "Write a blog", "Add CI", "Add demos", "Contribute upstream"},
		},
	}
}

type countingFetcher struct {
	calls atomic.Int32
	fn    func(ctx context.Context, identifier string) (*payload.AnalysisPayload, error)
}

func (f *countingFetcher) Analyze(ctx context.Context, identifier string) (*payload.AnalysisPayload, error) {
	f.calls.Add(1)
	return f.fn(ctx, identifier)
}

func newTestRouter(t *testing.T, fetcher lifecycle.Fetcher, renderWait time.Duration) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	templates, err := LoadTemplates()
	require.NoError(t, err)

	sm := security.NewSecurityMiddleware(security.DefaultSecurityConfig())
	registry := lifecycle.NewRegistry(fetcher, time.Minute, nil, nil)
	h := NewHandler(registry, templates, sm, nil, Config{RenderWait: renderWait, MaxInputLength: 200})

	r := gin.New()
	r.Use(sm.CSP())
	require.NoError(t, h.Register(r))
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHomeRendersForm(t *testing.T) {
	r := newTestRouter(t, &countingFetcher{}, time.Second)

	w := get(r, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="profile"`)
	assert.Contains(t, w.Body.String(), `<title>RepoLens</title>`)
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "nonce-")
}

func TestSubmit(t *testing.T) {
	f := &countingFetcher{}
	r := newTestRouter(t, f, time.Second)

	tests := []struct {
		name     string
		profile  string
		location string
	}{
		{"handle", "octocat", "/results/octocat"},
		{"profile url", "  https://github.com/octocat/ ", "/results/octocat"},
		{"blank", "   ", "/"},
		{"trailing slashes only", "https://github.com/octocat//", "/"},
		{"markup", "<script>alert(1)</script>", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"profile": {tt.profile}}
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}

	assert.Equal(t, int32(0), f.calls.Load(), "submitting must not fetch until the results view is visited")
}

func TestResultsReady(t *testing.T) {
	f := &countingFetcher{fn: func(ctx context.Context, identifier string) (*payload.AnalysisPayload, error) {
		return samplePayload(identifier), nil
	}}
	r := newTestRouter(t, f, time.Second)

	w := get(r, "/results/octocat")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `<span class="headline-score">82</span>`)
	assert.Contains(t, body, `<span class="verdict verdict-positive">Shortlist</span>`)
	assert.Contains(t, body, "The Deep Diver")
	assert.Contains(t, body, `<span class="ordinal">5</span><span>Contribute upstream</span>`)
	assert.Contains(t, body, `<strong>100</strong>`)
	assert.Empty(t, w.Header().Get("Refresh"))
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestResultsErrorFromBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"rate limited"}`))
	}))
	defer backend.Close()

	r := newTestRouter(t, client.New(backend.URL, time.Second), time.Second)

	w := get(r, "/results/octocat")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `<p class="error-message">rate limited</p>`)
	assert.Contains(t, w.Body.String(), `href="/"`)
}

func TestResultsErrorFallbackMessage(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backendURL := backend.URL
	backend.Close()

	r := newTestRouter(t, client.New(backendURL, time.Second), time.Second)

	w := get(r, "/results/octocat")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), lifecycle.FallbackMessage)
}

func TestResultsLoadingThenReadyOnSameScreen(t *testing.T) {
	release := make(chan struct{})
	f := &countingFetcher{fn: func(ctx context.Context, identifier string) (*payload.AnalysisPayload, error) {
		<-release
		return samplePayload(identifier), nil
	}}
	r := newTestRouter(t, f, 20*time.Millisecond)

	w := get(r, "/results/octocat")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Analyzing octocat")

	refresh := w.Header().Get("Refresh")
	require.True(t, strings.HasPrefix(refresh, "2; url=/results/octocat?screen="), refresh)
	next := strings.TrimPrefix(refresh, "2; url=")

	close(release)
	assert.Eventually(t, func() bool {
		w := get(r, next)
		return w.Code == http.StatusOK && strings.Contains(w.Body.String(), `<span class="headline-score">82</span>`)
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), f.calls.Load(), "revisiting the screen must not refetch")
}

func TestResultsScreenNavigatesToNewIdentifier(t *testing.T) {
	f := &countingFetcher{fn: func(ctx context.Context, identifier string) (*payload.AnalysisPayload, error) {
		return samplePayload(identifier), nil
	}}
	r := newTestRouter(t, f, time.Second)

	var first map[string]any
	w := get(r, "/api/results/alice")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	screen := first["screen"].(string)

	var second map[string]any
	w = get(r, "/api/results/bob?screen="+screen)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	assert.Equal(t, screen, second["screen"])
	assert.Equal(t, "bob", second["identifier"])
	assert.Equal(t, "ready", second["state"])
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestResultsJSONStates(t *testing.T) {
	f := &countingFetcher{fn: func(ctx context.Context, identifier string) (*payload.AnalysisPayload, error) {
		return samplePayload(identifier), nil
	}}
	r := newTestRouter(t, f, time.Second)

	w := get(r, "/api/results/octocat")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		State string `json:"state"`
		View  struct {
			Headline          int    `json:"headline"`
			VerdictColorClass string `json:"verdict_color_class"`
			RadarSeries       []struct {
				Label string `json:"label"`
				Value int    `json:"value"`
			} `json:"radar_series"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.Equal(t, "ready", body.State)
	assert.Equal(t, 82, body.View.Headline)
	assert.Equal(t, "verdict-positive", body.View.VerdictColorClass)
	require.Len(t, body.View.RadarSeries, 5)
	assert.Equal(t, "Tech Depth", body.View.RadarSeries[0].Label)
	assert.Equal(t, 100, body.View.RadarSeries[0].Value)
	assert.Equal(t, 0, body.View.RadarSeries[1].Value)
}

func TestStylesheetIsServed(t *testing.T) {
	r := newTestRouter(t, &countingFetcher{}, time.Second)

	w := get(r, "/static/styles.css")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), ".verdict-positive")
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
}
