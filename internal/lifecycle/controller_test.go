package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
	"github.com/ZanzyTHEbar/repolens/internal/payload"
)

type reply struct {
	p   *payload.AnalysisPayload
	err error
}

// gatedFetcher holds every request until the test releases it
type gatedFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	gates    map[string]chan reply
	started  chan string
	honorCtx bool
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		calls:   make(map[string]int),
		gates:   make(map[string]chan reply),
		started: make(chan string, 16),
	}
}

func (f *gatedFetcher) gate(identifier string) chan reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.gates[identifier]
	if !ok {
		ch = make(chan reply, 1)
		f.gates[identifier] = ch
	}
	return ch
}

func (f *gatedFetcher) Analyze(ctx context.Context, identifier string) (*payload.AnalysisPayload, error) {
	f.mu.Lock()
	f.calls[identifier]++
	f.mu.Unlock()

	gate := f.gate(identifier)
	f.started <- identifier

	if f.honorCtx {
		select {
		case r := <-gate:
			return r.p, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r := <-gate
	return r.p, r.err
}

func (f *gatedFetcher) release(identifier string, p *payload.AnalysisPayload, err error) {
	f.gate(identifier) <- reply{p: p, err: err}
}

func (f *gatedFetcher) callCount(identifier string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[identifier]
}

func (f *gatedFetcher) waitStarted(t *testing.T, identifier string) {
	t.Helper()
	select {
	case got := <-f.started:
		require.Equal(t, identifier, got)
	case <-time.After(time.Second):
		t.Fatalf("fetch for %s never started", identifier)
	}
}

func analysisFor(login string, portfolio int) *payload.AnalysisPayload {
	return &payload.AnalysisPayload{
		User:   payload.User{Login: login},
		Scores: payload.Scores{PortfolioScore: portfolio},
		Analysis: payload.Analysis{
			Verdict: payload.VerdictShortlist,
			Roadmap: []string{"1", "2", "3", "4", "5"},
		},
	}
}

func staleCount(m *monitoring.Metrics) float64 {
	families, err := m.Registry().Gather()
	if err != nil {
		return -1
	}
	for _, mf := range families {
		if mf.GetName() == "repolens_stale_responses_discarded_total" && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func awaitState(t *testing.T, c *Controller) ViewState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return c.Await(ctx)
}

func TestNavigateLoadsThenReady(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(f, nil, nil)
	defer c.Close()

	require.True(t, c.Navigate("octocat"))
	assert.Equal(t, Loading("octocat"), c.State())

	f.waitStarted(t, "octocat")
	f.release("octocat", analysisFor("octocat", 82), nil)

	state := awaitState(t, c)
	assert.Equal(t, PhaseReady, state.Phase)
	assert.Equal(t, "octocat", state.Identifier)
	assert.Equal(t, 82, state.Payload.Scores.PortfolioScore)
	assert.Empty(t, state.Message)
}

func TestNavigateFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"backend detail", errors.NewBackendError(500, "rate limited"), "rate limited"},
		{"backend without detail", errors.NewBackendError(500, ""), FallbackMessage},
		{"network", errors.NewNetworkError("refused", nil), FallbackMessage},
		{"payload", errors.NewPayloadError("analysis result was empty", nil), "analysis result was empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatedFetcher()
			c := NewController(f, nil, nil)
			defer c.Close()

			c.Navigate("octocat")
			f.waitStarted(t, "octocat")
			f.release("octocat", nil, tt.err)

			state := awaitState(t, c)
			assert.Equal(t, Failed("octocat", tt.want), state)
		})
	}
}

func TestNavigateSameIdentifierIssuesNoRequest(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(f, nil, nil)
	defer c.Close()

	require.True(t, c.Navigate("octocat"))
	assert.False(t, c.Navigate("octocat"))
	f.waitStarted(t, "octocat")

	f.release("octocat", analysisFor("octocat", 50), nil)
	awaitState(t, c)

	assert.False(t, c.Navigate("octocat"))
	assert.Equal(t, 1, f.callCount("octocat"))
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	for _, honorCtx := range []bool{false, true} {
		t.Run(map[bool]string{false: "fetcher ignores cancel", true: "fetcher honors cancel"}[honorCtx], func(t *testing.T) {
			f := newGatedFetcher()
			f.honorCtx = honorCtx
			m := monitoring.NewMetrics()
			c := NewController(f, nil, m)
			defer c.Close()

			c.Navigate("alice")
			f.waitStarted(t, "alice")
			c.Navigate("bob")
			f.waitStarted(t, "bob")

			f.release("bob", analysisFor("bob", 70), nil)
			state := awaitState(t, c)
			require.Equal(t, PhaseReady, state.Phase)
			assert.Equal(t, "bob", state.Payload.User.Login)

			changed := c.Changed()
			f.release("alice", analysisFor("alice", 10), nil)

			assert.Eventually(t, func() bool {
				return staleCount(m) == 1
			}, time.Second, 5*time.Millisecond)

			select {
			case <-changed:
				t.Fatal("stale response changed the view state")
			default:
			}
			assert.Equal(t, "bob", c.State().Payload.User.Login)
			assert.Equal(t, 1, f.callCount("alice"))
			assert.Equal(t, 1, f.callCount("bob"))
		})
	}
}

func TestStaleResponseArrivingFirstIsDiscarded(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(f, nil, nil)
	defer c.Close()

	c.Navigate("alice")
	f.waitStarted(t, "alice")
	c.Navigate("bob")
	f.waitStarted(t, "bob")

	changed := c.Changed()
	f.release("alice", analysisFor("alice", 10), nil)

	select {
	case <-changed:
		t.Fatal("alice's response must not resolve bob's screen")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, Loading("bob"), c.State())

	f.release("bob", nil, errors.NewBackendError(404, "GitHub user not found"))
	assert.Equal(t, Failed("bob", "GitHub user not found"), awaitState(t, c))
}

func TestAwaitReturnsLoadingOnTimeout(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(f, nil, nil)
	defer c.Close()

	c.Navigate("octocat")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, Loading("octocat"), c.Await(ctx))
}

func TestCloseDiscardsLateResults(t *testing.T) {
	f := newGatedFetcher()
	c := NewController(f, nil, nil)

	c.Navigate("octocat")
	f.waitStarted(t, "octocat")
	c.Close()

	f.release("octocat", analysisFor("octocat", 82), nil)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, Loading("octocat"), c.State())
	assert.False(t, c.Navigate("other"))
}

func TestViewStateVariants(t *testing.T) {
	assert.False(t, Loading("a").Resolved())
	assert.True(t, Failed("a", "x").Resolved())
	assert.True(t, Ready("a", analysisFor("a", 1)).Resolved())
	assert.Nil(t, Failed("a", "x").Payload)
	assert.Empty(t, Ready("a", analysisFor("a", 1)).Message)
}
