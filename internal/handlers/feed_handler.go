package handlers

import (
	"strconv"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feedService *services.FeedService
}

func NewFeedHandler(feedService *services.FeedService) *FeedHandler {
	return &FeedHandler{feedService: feedService}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
	g.GET("/feed/recent", h.GetRecent)
	g.GET("/feed/trending", h.GetTrending)
	g.GET("/feed/explore", h.GetExplore)
	g.GET("/users/:id/activities", h.GetUserActivities)
}

// GetFeed returns the caller's following feed
func (h *FeedHandler) GetFeed(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.feedService.GetFeed(c.Request().Context(), currentUserID, paginationFromQuery(c))
	if err != nil {
		return respondError(err)
	}
	return paged(c, "activities", page)
}

// GetRecent returns recent activities; ?scope=global|personal.
func (h *FeedHandler) GetRecent(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	scope := services.RecentScope(c.QueryParam("scope"))
	page, err := h.feedService.GetRecentActivities(c.Request().Context(), currentUserID, scope, paginationFromQuery(c))
	if err != nil {
		return respondError(err)
	}
	return paged(c, "activities", page)
}

// GetTrending ranks recent activities by likes; ?hours= sets the window.
func (h *FeedHandler) GetTrending(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	hours, _ := strconv.Atoi(c.QueryParam("hours"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	items, err := h.feedService.GetTrendingActivities(c.Request().Context(), currentUserID, time.Duration(hours)*time.Hour, limit)
	if err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"activities": items})
}

func (h *FeedHandler) GetExplore(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := h.feedService.GetExploreActivityFeed(c.Request().Context(), currentUserID, paginationFromQuery(c))
	if err != nil {
		return respondError(err)
	}
	return paged(c, "activities", page)
}

func (h *FeedHandler) GetUserActivities(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	authorID, err := paramUint(c, "id", "user ID")
	if err != nil {
		return err
	}
	page, err := h.feedService.GetUserActivities(c.Request().Context(), currentUserID, authorID, paginationFromQuery(c))
	if err != nil {
		return respondError(err)
	}
	return paged(c, "activities", page)
}
