package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/goalsocial/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FollowHandler exposes the follow graph.
type FollowHandler struct {
	followService *services.FollowService
}

func NewFollowHandler(followService *services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.POST("/users/:id/follow-request", h.RequestFollow)
	g.DELETE("/users/:id/follow-request", h.CancelFollowRequest)
	g.POST("/users/:id/block", h.BlockUser)
	g.DELETE("/users/:id/block", h.UnblockUser)

	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
	g.GET("/users/:id/follow-stats", h.GetFollowStats)
	g.GET("/users/:id/mutual-followers", h.GetMutualFollowers)
	g.GET("/users/suggested", h.GetSuggestedUsers)
	g.GET("/users/blocked", h.GetBlockedUsers)

	g.GET("/follow-requests", h.GetPendingRequests)
	g.POST("/follow-requests/:id/accept", h.AcceptFollowRequest)
	g.POST("/follow-requests/:id/reject", h.RejectFollowRequest)
}

func (h *FollowHandler) actorAndTarget(c echo.Context) (uint, uint, error) {
	currentUserID, err := currentUser(c)
	if err != nil {
		return 0, 0, err
	}
	targetID, err := paramUint(c, "id", "user ID")
	if err != nil {
		return 0, 0, err
	}
	return currentUserID, targetID, nil
}

// FollowUser follows a public profile or requests to follow a private one.
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	rel, err := h.followService.FollowOrRequest(c.Request().Context(), currentUserID, targetID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{
		"status":    rel.Status,
		"following": rel.IsFollowing(),
	}})
}

func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	if err := h.followService.Unfollow(c.Request().Context(), currentUserID, targetID); err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"following": false})
}

func (h *FollowHandler) RequestFollow(c echo.Context) error {
	currentUserID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	rel, err := h.followService.RequestFollow(c.Request().Context(), currentUserID, targetID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"status": rel.Status})
}

func (h *FollowHandler) CancelFollowRequest(c echo.Context) error {
	currentUserID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	if err := h.followService.CancelFollowRequest(c.Request().Context(), currentUserID, targetID); err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"cancelled": true})
}

func (h *FollowHandler) BlockUser(c echo.Context) error {
	currentUserID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	if err := h.followService.Block(c.Request().Context(), currentUserID, targetID); err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"blocked": true})
}

func (h *FollowHandler) UnblockUser(c echo.Context) error {
	currentUserID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	if err := h.followService.Unblock(c.Request().Context(), currentUserID, targetID); err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"blocked": false})
}

func (h *FollowHandler) GetFollowers(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	userID, err := paramUint(c, "id", "user ID")
	if err != nil {
		return err
	}
	page, err := h.followService.GetFollowers(c.Request().Context(), userID, paginationFromQuery(c))
	if err != nil {
		return respondError(err)
	}
	return paged(c, "followers", page)
}

func (h *FollowHandler) GetFollowing(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	userID, err := paramUint(c, "id", "user ID")
	if err != nil {
		return err
	}
	page, err := h.followService.GetFollowing(c.Request().Context(), userID, paginationFromQuery(c))
	if err != nil {
		return respondError(err)
	}
	return paged(c, "following", page)
}

func (h *FollowHandler) GetFollowStats(c echo.Context) error {
	currentUserID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	stats, err := h.followService.GetFollowStats(c.Request().Context(), currentUserID, targetID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, stats)
}

func (h *FollowHandler) GetMutualFollowers(c echo.Context) error {
	currentUserID, targetID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	n, err := h.followService.GetMutualFollowerCount(c.Request().Context(), currentUserID, targetID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"count": n})
}

func (h *FollowHandler) GetSuggestedUsers(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	users, err := h.followService.GetSuggestedUsers(c.Request().Context(), currentUserID, limit)
	if err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"users": users})
}

func (h *FollowHandler) GetBlockedUsers(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	ids, err := h.followService.GetBlockedUserIDs(c.Request().Context(), currentUserID)
	if err != nil {
		return respondError(err)
	}
	if ids == nil {
		ids = []uint{}
	}
	return ok(c, echo.Map{"user_ids": ids})
}

func (h *FollowHandler) GetPendingRequests(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.followService.GetPendingRequests(c.Request().Context(), currentUserID, paginationFromQuery(c))
	if err != nil {
		return respondError(err)
	}
	return paged(c, "requests", page)
}

// AcceptFollowRequest accepts the request sent by the user in :id.
func (h *FollowHandler) AcceptFollowRequest(c echo.Context) error {
	currentUserID, requesterID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	if err := h.followService.AcceptFollowRequest(c.Request().Context(), currentUserID, requesterID); err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"accepted": true})
}

func (h *FollowHandler) RejectFollowRequest(c echo.Context) error {
	currentUserID, requesterID, err := h.actorAndTarget(c)
	if err != nil {
		return err
	}
	if err := h.followService.RejectFollowRequest(c.Request().Context(), currentUserID, requesterID); err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"rejected": true})
}
