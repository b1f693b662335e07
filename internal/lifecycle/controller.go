package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
	"github.com/ZanzyTHEbar/repolens/internal/payload"
)

// FallbackMessage is shown when a failure carries no message of its own
const FallbackMessage = "Failed to analyze profile. Make sure the backend is running."

// Fetcher performs one analysis request
type Fetcher interface {
	Analyze(ctx context.Context, identifier string) (*payload.AnalysisPayload, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, identifier string) (*payload.AnalysisPayload, error)

// Analyze calls f
func (f FetcherFunc) Analyze(ctx context.Context, identifier string) (*payload.AnalysisPayload, error) {
	return f(ctx, identifier)
}

// Controller drives one results screen through Loading, Error and Ready.
// Every fetch is tagged with a generation; a result is committed only while
// its generation is current and the screen is still loading that identifier.
type Controller struct {
	fetcher Fetcher
	logger  *monitoring.Logger
	metrics *monitoring.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	generation uint64
	state      ViewState
	started    bool
	inflight   context.CancelFunc
	changed    chan struct{}
	closed     bool
}

// NewController creates an idle controller. Call Navigate to start a fetch.
func NewController(fetcher Fetcher, logger *monitoring.Logger, metrics *monitoring.Metrics) *Controller {
	if logger == nil {
		logger = monitoring.NopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
		ctx:     ctx,
		cancel:  cancel,
		changed: make(chan struct{}),
	}
}

// Navigate points the screen at identifier. A change of identifier moves the
// screen to Loading and issues exactly one fetch; navigating to the current
// identifier issues nothing. It reports whether a fetch was started.
func (c *Controller) Navigate(identifier string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || (c.started && c.state.Identifier == identifier) {
		return false
	}

	if c.inflight != nil {
		c.inflight()
	}

	c.started = true
	c.generation++
	gen := c.generation

	fetchCtx, cancel := context.WithCancel(c.ctx)
	c.inflight = cancel
	c.setLocked(Loading(identifier))

	go c.fetch(fetchCtx, gen, identifier)
	return true
}

func (c *Controller) fetch(ctx context.Context, gen uint64, identifier string) {
	start := time.Now()
	result, err := c.fetcher.Analyze(ctx, identifier)

	next := Ready(identifier, result)
	if err != nil {
		next = Failed(identifier, errors.UserMessage(err, FallbackMessage))
	}

	if !c.commit(gen, next) {
		if c.ctx.Err() != nil {
			return
		}
		c.metrics.IncStaleDiscarded()
		c.logger.Debug("Discarded stale analysis response",
			"identifier", identifier,
			"generation", gen,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	if err != nil {
		c.logger.Info("Analysis failed", "identifier", identifier, "error", err.Error())
	}
}

// commit applies next if gen is still the live request for this screen
func (c *Controller) commit(gen uint64, next ViewState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation {
		return false
	}
	if c.state.Phase != PhaseLoading || c.state.Identifier != next.Identifier {
		return false
	}

	c.inflight = nil
	c.setLocked(next)
	return true
}

// setLocked replaces the state and wakes waiters. c.mu must be held.
func (c *Controller) setLocked(next ViewState) {
	c.state = next
	close(c.changed)
	c.changed = make(chan struct{})

	c.metrics.RecordTransition(string(next.Phase))
	c.logger.LifecycleLogger(next.Identifier, string(next.Phase), c.generation)
}

// State returns the current view state
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Changed returns a channel closed on the next state transition
func (c *Controller) Changed() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}

// Await blocks until the screen leaves Loading or ctx is done, and returns
// the state at that moment.
func (c *Controller) Await(ctx context.Context) ViewState {
	for {
		c.mu.Lock()
		state, changed := c.state, c.changed
		c.mu.Unlock()

		if state.Resolved() {
			return state
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return c.State()
		case <-c.ctx.Done():
			return c.State()
		}
	}
}

// Close cancels any in-flight fetch. Late results are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
}
