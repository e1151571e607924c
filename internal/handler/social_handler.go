package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ncpierced1371/throttle-meet-backend/internal/domain"
	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/middleware"
	"github.com/ncpierced1371/throttle-meet-backend/pkg/response"
)

// CreateProfile handles POST /api/v1/users. The profile id is the token subject.
func (h *Handler) CreateProfile(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		l := pkglog.Ctx(ctx)
		l.Warn().Err(err).Msg("invalid profile request")
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.svc.Profiles.CreateProfile(ctx, middleware.GetUserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, user)
}

// GetProfile handles GET /api/v1/users/:user_id.
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.svc.Profiles.GetProfile(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, user)
}

// Follow handles POST /api/v1/users/:user_id/follow.
// The authenticated user follows the target user.
func (h *Handler) Follow(c *gin.Context) {
	if err := h.svc.Graph.FollowUser(c.Request.Context(), middleware.GetUserID(c), c.Param("user_id")); err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, gin.H{"message": "followed successfully"})
}

// Unfollow handles DELETE /api/v1/users/:user_id/follow.
// Unfollowing someone not followed is not an error.
func (h *Handler) Unfollow(c *gin.Context) {
	if err := h.svc.Graph.UnfollowUser(c.Request.Context(), middleware.GetUserID(c), c.Param("user_id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// ListFollowers handles GET /api/v1/users/:user_id/followers.
func (h *Handler) ListFollowers(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	page, err := h.svc.Graph.ListFollowers(c.Request.Context(), c.Param("user_id"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Paginated(c, page.Users, page.Total, page.Limit, page.Offset)
}

// ListFollowing handles GET /api/v1/users/:user_id/following.
func (h *Handler) ListFollowing(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	page, err := h.svc.Graph.ListFollowing(c.Request.Context(), c.Param("user_id"), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Paginated(c, page.Users, page.Total, page.Limit, page.Offset)
}

// Suggestions handles GET /api/v1/users/me/suggestions.
func (h *Handler) Suggestions(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	page, err := h.svc.Graph.SuggestUsers(c.Request.Context(), middleware.GetUserID(c), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Paginated(c, page.Users, page.Total, page.Limit, page.Offset)
}

// GetFeed handles GET /api/v1/feed?type=&rally_type=&hashtag=&limit=&offset=.
func (h *Handler) GetFeed(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	feed, err := h.svc.Feed.GetFeed(c.Request.Context(), middleware.GetUserID(c), domain.FeedQuery{
		Type:      c.Query("type"),
		Limit:     limit,
		Offset:    offset,
		RallyType: c.Query("rally_type"),
		Hashtag:   c.Query("hashtag"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, feed)
}
