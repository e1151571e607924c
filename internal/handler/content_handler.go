package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/middleware"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/response"
)

// CreatePost handles POST /api/v1/posts.
func (h *Handler) CreatePost(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.PostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Msg("invalid post request")
		response.BadRequest(c, err.Error())
		return
	}

	post, err := h.svc.Content.CreatePost(ctx, middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, post)
}

// CreateRoute handles POST /api/v1/routes.
func (h *Handler) CreateRoute(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.RouteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Msg("invalid route request")
		response.BadRequest(c, err.Error())
		return
	}

	route, err := h.svc.Content.CreateRoute(ctx, middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, route)
}
