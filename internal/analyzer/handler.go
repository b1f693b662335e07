package analyzer

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ZanzyTHEbar/repolens/internal/errors"
	"github.com/ZanzyTHEbar/repolens/internal/identity"
	"github.com/ZanzyTHEbar/repolens/internal/ratelimit"
	"github.com/ZanzyTHEbar/repolens/internal/types"
)

const invalidUsername = "Invalid username or URL provided"

// Handler exposes the Service over HTTP
type Handler struct {
	service *Service
	limiter *ratelimit.RateLimiter
	timeout time.Duration
}

// NewHandler creates the API handler. limiter may be nil to disable rate limiting.
func NewHandler(service *Service, limiter *ratelimit.RateLimiter, timeout time.Duration) *Handler {
	return &Handler{service: service, limiter: limiter, timeout: timeout}
}

// Register mounts the analysis API routes
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("")
	api.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	api.GET("/api/status", h.status)
	api.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.InstanceName(SwaggerInfo.InstanceName()),
	))

	analyze := []gin.HandlerFunc{}
	if h.limiter != nil {
		analyze = append(analyze, h.limiter.IPRateLimitMiddleware())
	}
	analyze = append(analyze, h.analyze)
	api.POST("/analyze", analyze...)
	api.OPTIONS("/analyze", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

// status godoc
// @Summary      Liveness of the analysis API
// @Tags         analysis
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /api/status [get]
func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, types.StatusResponse{Message: "RepoLens API is live"})
}

// analyze godoc
// @Summary      Analyze a GitHub profile
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        request  body      types.AnalyzeRequest  true  "profile handle or URL"
// @Success      200      {object}  payload.AnalysisPayload
// @Failure      400      {object}  types.ErrorResponse
// @Failure      404      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      502      {object}  types.ErrorResponse
// @Router       /analyze [post]
func (h *Handler) analyze(c *gin.Context) {
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	var req types.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.NewValidationError("invalid request body", err.Error()).WithDisplay(invalidUsername))
		return
	}

	username, ok := identity.Normalize(req.Username)
	if !ok {
		h.fail(c, errors.NewValidationError("empty username", strings.TrimSpace(req.Username)).WithDisplay(invalidUsername))
		return
	}

	result, err := h.service.Analyze(ctx, username)
	if err != nil {
		h.fail(c, errors.ToAppError(err))
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) fail(c *gin.Context, appErr *errors.AppError) {
	errors.LogError(c, appErr)
	c.JSON(appErr.HTTPStatus, types.ErrorResponse{Detail: errors.UserMessage(appErr, appErr.ErrBuilder.Msg)})
}
