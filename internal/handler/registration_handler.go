package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	"github.com/ncpierced1371/throttle-meet-backend/internal/service"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/middleware"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/response"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateRegistration handles POST /api/v1/events/:event_id/registrations.
// An empty body registers without car details.
func (h *Handler) CreateRegistration(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.RegistrationDetails
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			l := pkglog.Ctx(ctx)
			l.Warn().Err(err).Msg("invalid registration request")
			response.BadRequest(c, err.Error())
			return
		}
	}

	reg, err := h.svc.Registrations.CreateRegistration(ctx, c.Param("event_id"), middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, reg)
}

// ListRegistrations handles GET /api/v1/events/:event_id/registrations.
// Only the organizer or an admin may list.
func (h *Handler) ListRegistrations(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}

	eventID := c.Param("event_id")
	if _, ok := h.requireOrganizer(c, eventID); !ok {
		return
	}

	page, err := h.svc.Registrations.ListRegistrations(c.Request.Context(), domain.RegistrationFilter{
		EventID: eventID,
		UserID:  c.Query("user_id"),
		Status:  domain.RegistrationStatus(c.Query("status")),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Paginated(c, page.Registrations, page.Total, page.Limit, page.Offset)
}

// GetRegistration handles GET /api/v1/registrations/:registration_id.
func (h *Handler) GetRegistration(c *gin.Context) {
	reg, ok := h.authorizeRegistration(c, true)
	if !ok {
		return
	}
	response.Success(c, reg)
}

// UpdateRegistrationStatus handles PATCH /api/v1/registrations/:registration_id/status.
func (h *Handler) UpdateRegistrationStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reg, ok := h.authorizeRegistration(c, false)
	if !ok {
		return
	}

	updated, err := h.svc.Registrations.UpdateRegistrationStatus(c.Request.Context(), reg.ID, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, updated)
}

// CancelRegistration handles DELETE /api/v1/registrations/:registration_id.
func (h *Handler) CancelRegistration(c *gin.Context) {
	reg, ok := h.authorizeRegistration(c, true)
	if !ok {
		return
	}

	if err := h.svc.Registrations.CancelRegistration(c.Request.Context(), reg.ID); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// authorizeRegistration loads the registration named in the path and checks
// the caller is an admin, the event organizer or, when allowOwner is set,
// the registrant. On false the response has been written.
func (h *Handler) authorizeRegistration(c *gin.Context, allowOwner bool) (*domain.Registration, bool) {
	ctx := c.Request.Context()

	reg, err := h.svc.Registrations.GetRegistration(ctx, c.Param("registration_id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}

	caller := middleware.GetUserID(c)
	if isAdmin(c) || (allowOwner && reg.UserID == caller) {
		return reg, true
	}

	event, err := h.svc.Events.GetEvent(ctx, reg.EventID)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	if event.OrganizerID != caller {
		writeError(c, service.ErrForbidden)
		return nil, false
	}
	return reg, true
}
