package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/service"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/middleware"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/response"
)

type presignRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// CreateEvent handles POST /api/v1/events. The caller becomes the organizer.
func (h *Handler) CreateEvent(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.EventInput
	if err := c.ShouldBindJSON(&req); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Msg("invalid event request")
		response.BadRequest(c, err.Error())
		return
	}

	event, err := h.svc.Events.CreateEvent(ctx, middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, event)
}

// GetEvent handles GET /api/v1/events/:event_id.
func (h *Handler) GetEvent(c *gin.Context) {
	event, err := h.svc.Events.GetEvent(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, event)
}

// PresignCover handles POST /api/v1/events/:event_id/cover/presign.
func (h *Handler) PresignCover(c *gin.Context) {
	ctx := c.Request.Context()

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	eventID := c.Param("event_id")
	if _, ok := h.requireOrganizer(c, eventID); !ok {
		return
	}

	target, err := h.svc.Media.PresignEventCover(ctx, eventID, req.ContentType)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, target)
}

// requireOrganizer loads the event and lets the organizer or an admin through.
// On false the response has been written.
func (h *Handler) requireOrganizer(c *gin.Context, eventID string) (*domain.Event, bool) {
	event, err := h.svc.Events.GetEvent(c.Request.Context(), eventID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if event.OrganizerID != middleware.GetUserID(c) && !isAdmin(c) {
		writeError(c, service.ErrNotOrganizer)
		return nil, false
	}
	return event, true
}
