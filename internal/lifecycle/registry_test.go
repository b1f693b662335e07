package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/repolens/internal/payload"
)

func instantFetcher(calls *atomic.Int32) Fetcher {
	return FetcherFunc(func(ctx context.Context, identifier string) (*payload.AnalysisPayload, error) {
		calls.Add(1)
		return analysisFor(identifier, 60), nil
	})
}

func TestRegistryOpenAndLookup(t *testing.T) {
	f := newGatedFetcher()
	r := NewRegistry(f, time.Minute, nil, nil)

	screen := r.Open("octocat")
	require.NotEmpty(t, screen.ID)
	f.waitStarted(t, "octocat")

	found, ok := r.Lookup(screen.ID)
	require.True(t, ok)
	assert.Same(t, screen, found)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryVisitReusesScreen(t *testing.T) {
	f := newGatedFetcher()
	r := NewRegistry(f, time.Minute, nil, nil)

	first := r.Visit("", "alice")
	f.waitStarted(t, "alice")

	same := r.Visit(first.ID, "alice")
	assert.Same(t, first, same)
	assert.Equal(t, 1, f.callCount("alice"))

	moved := r.Visit(first.ID, "bob")
	assert.Same(t, first, moved)
	f.waitStarted(t, "bob")
	assert.Equal(t, Loading("bob"), moved.Controller.State())

	fresh := r.Visit("unknown-id", "alice")
	assert.NotEqual(t, first.ID, fresh.ID)
	f.waitStarted(t, "alice")
	assert.Equal(t, 2, f.callCount("alice"))
}

func TestRegistryFreshVisitRefetches(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(instantFetcher(&calls), time.Minute, nil, nil)

	a := r.Open("octocat")
	awaitState(t, a.Controller)
	b := r.Open("octocat")
	awaitState(t, b.Controller)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRegistrySweep(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(instantFetcher(&calls), time.Minute, nil, nil)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	old := r.Open("old")
	r.now = func() time.Time { return base.Add(50 * time.Second) }
	recent := r.Open("recent")

	removed := r.Sweep(base.Add(90 * time.Second))
	assert.Equal(t, 1, removed)

	_, ok := r.Lookup(old.ID)
	assert.False(t, ok)
	_, ok = r.Lookup(recent.ID)
	assert.True(t, ok)
}

func TestRegistryRunClosesScreensOnShutdown(t *testing.T) {
	f := newGatedFetcher()
	r := NewRegistry(f, time.Minute, nil, nil)
	r.Open("octocat")
	f.waitStarted(t, "octocat")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("registry did not stop")
	}
	assert.Equal(t, 0, r.Len())
}
