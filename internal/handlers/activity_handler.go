package handlers

import (
	"net/http"

	"github.com/anonto42/goalsocial/backend/internal/models"
	"github.com/anonto42/goalsocial/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// ActivityHandler handles recording activities and liking or commenting on
// activities, goals and comments.
type ActivityHandler struct {
	activityService *services.ActivityService
}

func NewActivityHandler(activityService *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// RegisterActivityRoutes registers activity, like and comment routes
func (h *ActivityHandler) RegisterActivityRoutes(g *echo.Group) {
	g.POST("/activities", h.RecordActivity)
	g.DELETE("/activities/:id", h.DeleteActivity)

	g.POST("/activities/:id/like", h.LikeActivity)
	g.DELETE("/activities/:id/like", h.UnlikeActivity)
	g.POST("/goals/:id/like", h.LikeGoal)
	g.DELETE("/goals/:id/like", h.UnlikeGoal)

	g.GET("/activities/:id/comments", h.GetComments)
	g.POST("/activities/:id/comments", h.CreateComment)
	g.POST("/comments/:id/like", h.LikeComment)
	g.DELETE("/comments/:id/like", h.UnlikeComment)
}

func (h *ActivityHandler) RecordActivity(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.RecordActivityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	activity, err := h.activityService.RecordActivity(c.Request().Context(), currentUserID, req)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": activity})
}

func (h *ActivityHandler) DeleteActivity(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.activityService.DeleteActivity(c.Request().Context(), currentUserID, c.Param("id")); err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"deleted": true})
}

// likeAction runs a like or unlike against the :id path value.
func likeAction(c echo.Context, fn func(userID uint, id string) (*models.LikeState, error)) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	state, err := fn(currentUserID, c.Param("id"))
	if err != nil {
		return respondError(err)
	}
	return ok(c, state)
}

func (h *ActivityHandler) LikeActivity(c echo.Context) error {
	return likeAction(c, func(userID uint, id string) (*models.LikeState, error) {
		return h.activityService.LikeActivity(c.Request().Context(), userID, id)
	})
}

func (h *ActivityHandler) UnlikeActivity(c echo.Context) error {
	return likeAction(c, func(userID uint, id string) (*models.LikeState, error) {
		return h.activityService.UnlikeActivity(c.Request().Context(), userID, id)
	})
}

func (h *ActivityHandler) LikeComment(c echo.Context) error {
	return likeAction(c, func(userID uint, id string) (*models.LikeState, error) {
		return h.activityService.LikeComment(c.Request().Context(), userID, id)
	})
}

func (h *ActivityHandler) UnlikeComment(c echo.Context) error {
	return likeAction(c, func(userID uint, id string) (*models.LikeState, error) {
		return h.activityService.UnlikeComment(c.Request().Context(), userID, id)
	})
}

func (h *ActivityHandler) LikeGoal(c echo.Context) error {
	goalID, err := paramUint(c, "id", "goal ID")
	if err != nil {
		return err
	}
	return likeAction(c, func(userID uint, _ string) (*models.LikeState, error) {
		return h.activityService.LikeGoal(c.Request().Context(), userID, goalID)
	})
}

func (h *ActivityHandler) UnlikeGoal(c echo.Context) error {
	goalID, err := paramUint(c, "id", "goal ID")
	if err != nil {
		return err
	}
	return likeAction(c, func(userID uint, _ string) (*models.LikeState, error) {
		return h.activityService.UnlikeGoal(c.Request().Context(), userID, goalID)
	})
}

// CreateComment adds a comment, or a reply when parent_id is set.
func (h *ActivityHandler) CreateComment(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	comment, err := h.activityService.AddComment(c.Request().Context(), currentUserID, c.Param("id"), req)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": comment})
}

func (h *ActivityHandler) GetComments(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.activityService.ListComments(c.Request().Context(), currentUserID, c.Param("id"), paginationFromQuery(c))
	if err != nil {
		return respondError(err)
	}
	return paged(c, "comments", page)
}
