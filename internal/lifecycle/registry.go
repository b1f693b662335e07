package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
)

// Screen is one visit to the results view
type Screen struct {
	ID         string
	Controller *Controller

	mu       sync.Mutex
	lastSeen time.Time
}

// Touch marks the screen as used at now
func (s *Screen) Touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time the screen was last used
func (s *Screen) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Registry tracks open results screens by ID. Screens are per visit; a new
// visit always gets a new screen and therefore a new fetch.
type Registry struct {
	fetcher Fetcher
	ttl     time.Duration
	logger  *monitoring.Logger
	metrics *monitoring.Metrics
	now     func() time.Time

	screens *xsync.MapOf[string, *Screen]
}

// NewRegistry creates a registry whose screens fetch through fetcher and
// expire after ttl without use.
func NewRegistry(fetcher Fetcher, ttl time.Duration, logger *monitoring.Logger, metrics *monitoring.Metrics) *Registry {
	if logger == nil {
		logger = monitoring.NopLogger()
	}
	return &Registry{
		fetcher: fetcher,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		screens: xsync.NewMapOf[string, *Screen](),
	}
}

// Open creates a screen and navigates it to identifier
func (r *Registry) Open(identifier string) *Screen {
	screen := &Screen{
		ID:         uuid.NewString(),
		Controller: NewController(r.fetcher, r.logger, r.metrics),
		lastSeen:   r.now(),
	}
	r.screens.Store(screen.ID, screen)
	r.metrics.SetScreensOpen(r.screens.Size())

	screen.Controller.Navigate(identifier)
	return screen
}

// Lookup returns the screen with id and marks it as used
func (r *Registry) Lookup(id string) (*Screen, bool) {
	screen, ok := r.screens.Load(id)
	if !ok {
		return nil, false
	}
	screen.Touch(r.now())
	return screen, true
}

// Visit returns the screen with id pointed at identifier, or a new screen
// when id is unknown. A known screen showing another identifier navigates.
func (r *Registry) Visit(id, identifier string) *Screen {
	if id != "" {
		if screen, ok := r.Lookup(id); ok {
			screen.Controller.Navigate(identifier)
			return screen
		}
	}
	return r.Open(identifier)
}

// Len returns the number of open screens
func (r *Registry) Len() int {
	return r.screens.Size()
}

// Sweep closes and forgets screens idle since before now-ttl
func (r *Registry) Sweep(now time.Time) int {
	removed := 0
	r.screens.Range(func(id string, screen *Screen) bool {
		if now.Sub(screen.LastSeen()) > r.ttl {
			r.screens.Delete(id)
			screen.Controller.Close()
			removed++
		}
		return true
	})

	if removed > 0 {
		r.logger.Debug("Swept idle screens", "removed", removed, "open", r.screens.Size())
	}
	r.metrics.SetScreensOpen(r.screens.Size())
	return removed
}

// Run sweeps periodically until ctx is done, then closes every screen
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

func (r *Registry) closeAll() {
	r.screens.Range(func(id string, screen *Screen) bool {
		r.screens.Delete(id)
		screen.Controller.Close()
		return true
	})
	r.metrics.SetScreensOpen(0)
}
