package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ncpierced1371/throttle-meet-backend/internal/service"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/middleware"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/response"
)

// retryAfterSeconds is the Retry-After hint sent with 503 responses.
const retryAfterSeconds = 1

// Services bundles the operations exposed over HTTP.
type Services struct {
	Profiles      service.ProfileService
	Graph         service.FollowGraphService
	Events        service.EventService
	Registrations service.RegistrationService
	Feed          service.FeedService
	Content       service.ContentService
	Media         service.MediaService
}

// Handler handles HTTP requests for the ThrottleMeet API.
type Handler struct {
	svc            Services
	authMiddleware *middleware.AuthMiddleware
	limiter        *middleware.RateLimiter
}

// NewHandler creates a new HTTP handler. limiter may be nil to disable rate limiting.
func NewHandler(svc Services, authMiddleware *middleware.AuthMiddleware, limiter *middleware.RateLimiter) *Handler {
	return &Handler{
		svc:            svc,
		authMiddleware: authMiddleware,
		limiter:        limiter,
	}
}

// RegisterRoutes registers all routes onto the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	auth := h.authMiddleware.RequireAuth()

	api := r.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("", auth, h.CreateProfile)
			users.GET("/me/suggestions", auth, h.Suggestions)
			users.GET("/:user_id", h.GetProfile)
			users.POST("/:user_id/follow", auth, h.limit("follow"), h.Follow)
			users.DELETE("/:user_id/follow", auth, h.limit("follow"), h.Unfollow)
			users.GET("/:user_id/followers", h.ListFollowers)
			users.GET("/:user_id/following", h.ListFollowing)
		}

		api.GET("/feed", auth, h.GetFeed)
		api.POST("/posts", auth, h.limit("posts"), h.CreatePost)
		api.POST("/routes", auth, h.limit("routes"), h.CreateRoute)

		events := api.Group("/events")
		{
			events.POST("", auth, h.limit("events"), h.CreateEvent)
			events.GET("/:event_id", h.GetEvent)
			events.POST("/:event_id/registrations", auth, h.limit("registrations"), h.CreateRegistration)
			events.GET("/:event_id/registrations", auth, h.ListRegistrations)
			events.POST("/:event_id/cover/presign", auth, h.PresignCover)
		}

		registrations := api.Group("/registrations", auth)
		{
			registrations.GET("/:registration_id", h.GetRegistration)
			registrations.PATCH("/:registration_id/status", h.UpdateRegistrationStatus)
			registrations.DELETE("/:registration_id", h.CancelRegistration)
		}
	}
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) limit(scope string) gin.HandlerFunc {
	if h.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h.limiter.Middleware(scope)
}

// writeError maps a service error onto an HTTP status. Caller errors carry
// their message; transient and internal failures do not.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrInvalidOperation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrTransient):
		response.ServiceUnavailable(c, "temporarily unavailable, retry", retryAfterSeconds)
	default:
		l := pkglog.Ctx(c.Request.Context())
		l.Error().Err(err).Str(pkglog.FieldRoute, c.FullPath()).Msg("request failed")
		response.InternalError(c, "internal error")
	}
}

// pageParams reads limit and offset. Missing values are left at zero so the
// service applies its defaults.
func pageParams(c *gin.Context) (limit, offset int, ok bool) {
	var err error
	if s := c.Query("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return 0, 0, false
		}
	}
	if s := c.Query("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			response.BadRequest(c, "offset must be a non-negative integer")
			return 0, 0, false
		}
	}
	return limit, offset, true
}

func isAdmin(c *gin.Context) bool {
	return middleware.HasRole(c, middleware.RoleAdmin)
}
