package frontend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
	"github.com/ZanzyTHEbar/repolens/internal/identity"
	"github.com/ZanzyTHEbar/repolens/internal/lifecycle"
	"github.com/ZanzyTHEbar/repolens/internal/monitoring"
	"github.com/ZanzyTHEbar/repolens/internal/security"
	"github.com/ZanzyTHEbar/repolens/internal/viewmodel"
)

// refreshSeconds is how often a loading results page reloads itself
const refreshSeconds = 2

// Handler serves the home and results views
type Handler struct {
	registry   *lifecycle.Registry
	templates  *Templates
	security   *security.SecurityMiddleware
	logger     *monitoring.Logger
	renderWait time.Duration
	maxInput   int
}

// Config carries the handler's tunables
type Config struct {
	RenderWait     time.Duration
	MaxInputLength int
}

// NewHandler wires the views to the screen registry
func NewHandler(registry *lifecycle.Registry, templates *Templates, sm *security.SecurityMiddleware, logger *monitoring.Logger, cfg Config) *Handler {
	if logger == nil {
		logger = monitoring.NopLogger()
	}
	return &Handler{
		registry:   registry,
		templates:  templates,
		security:   sm,
		logger:     logger,
		renderWait: cfg.RenderWait,
		maxInput:   cfg.MaxInputLength,
	}
}

// Register mounts the views, the JSON state endpoint and the stylesheet
func (h *Handler) Register(r gin.IRouter) error {
	static, err := StaticFS()
	if err != nil {
		return fmt.Errorf("failed to open embedded assets: %w", err)
	}

	r.GET("/", h.Home)
	r.POST("/", h.Submit)
	r.GET("/results/:identifier", h.Results)
	r.GET("/api/results/:identifier", h.ResultsJSON)

	assets := r.Group("/static", func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=3600")
		c.Next()
	})
	assets.StaticFS("/", http.FS(static))

	return nil
}

type homePage struct {
	Nonce          string
	MaxInputLength int
}

type resultsPage struct {
	Nonce      string
	Identifier string
	ScreenID   string
	State      lifecycle.Phase
	Message    string
	RefreshURL string
	View       *viewmodel.ViewModel
}

// Home renders the profile input
func (h *Handler) Home(c *gin.Context) {
	h.render(c, http.StatusOK, PageHome, homePage{
		Nonce:          security.GetNonce(c),
		MaxInputLength: h.maxInput,
	})
}

// Submit normalizes the submitted profile and navigates to its results.
// Unusable input silently returns to the home view.
func (h *Handler) Submit(c *gin.Context) {
	raw := c.PostForm("profile")

	if err := h.security.ValidateInput(raw); err != nil {
		h.logger.SecurityLogger("rejected_profile_input", c.ClientIP(), c.GetHeader("User-Agent"), map[string]interface{}{
			"reason": err.Error(),
		})
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	identifier, ok := identity.Normalize(raw)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	c.Redirect(http.StatusSeeOther, resultsPath(identifier))
}

// Results renders the screen's current state, giving the fetch up to
// renderWait to resolve first.
func (h *Handler) Results(c *gin.Context) {
	identifier, ok := identity.Normalize(c.Param("identifier"))
	if !ok {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	screen, state := h.visit(c, identifier)
	page := resultsPage{
		Nonce:      security.GetNonce(c),
		Identifier: state.Identifier,
		ScreenID:   screen.ID,
		State:      state.Phase,
	}

	status := http.StatusOK
	switch state.Phase {
	case lifecycle.PhaseLoading:
		page.RefreshURL = screenPath(identifier, screen.ID)
		c.Header("Refresh", fmt.Sprintf("%d; url=%s", refreshSeconds, page.RefreshURL))
	case lifecycle.PhaseError:
		page.Message = state.Message
		status = http.StatusBadGateway
	case lifecycle.PhaseReady:
		vm := viewmodel.Build(state.Payload)
		page.View = &vm
	}

	h.render(c, status, PageResults, page)
}

// ResultsJSON reports the screen's current state for script clients
func (h *Handler) ResultsJSON(c *gin.Context) {
	identifier, ok := identity.Normalize(c.Param("identifier"))
	if !ok {
		errors.LogError(c, errors.NewValidationError("identifier is empty"))
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid username or URL provided"})
		return
	}

	screen, state := h.visit(c, identifier)
	body := gin.H{
		"state":      state.Phase,
		"screen":     screen.ID,
		"identifier": state.Identifier,
	}

	switch state.Phase {
	case lifecycle.PhaseError:
		body["message"] = state.Message
	case lifecycle.PhaseReady:
		body["view"] = viewmodel.Build(state.Payload)
	}

	c.JSON(http.StatusOK, body)
}

func (h *Handler) visit(c *gin.Context, identifier string) (*lifecycle.Screen, lifecycle.ViewState) {
	screen := h.registry.Visit(c.Query("screen"), identifier)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.renderWait)
	defer cancel()

	return screen, screen.Controller.Await(ctx)
}

func (h *Handler) render(c *gin.Context, status int, page string, data any) {
	if err := h.templates.Render(c, status, page, data); err != nil {
		appErr := errors.NewInternalError("failed to render page", err)
		errors.LogError(c, appErr)
		c.AbortWithStatusJSON(http.StatusInternalServerError, appErr.Response())
	}
}

func resultsPath(identifier string) string {
	return "/results/" + url.PathEscape(identifier)
}

func screenPath(identifier, screenID string) string {
	return resultsPath(identifier) + "?screen=" + url.QueryEscape(screenID)
}
