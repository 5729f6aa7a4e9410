package handlers

import (
	"strconv"

	"github.com/anonto42/goalsocial/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/read-all", h.MarkAllAsRead)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
	g.DELETE("/notifications/:id", h.DeleteNotification)
}

// GetNotifications returns the caller's unexpired notifications, newest first.
// ?unread=true limits the page to unread ones.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread"))

	page, err := h.notificationService.List(c.Request().Context(), currentUserID, unreadOnly, paginationFromQuery(c))
	if err != nil {
		return respondError(err)
	}
	return paged(c, "notifications", page)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	count, err := h.notificationService.UnreadCount(c.Request().Context(), currentUserID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"count": count})
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.notificationService.MarkRead(c.Request().Context(), currentUserID, c.Param("id")); err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"read": true})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	n, err := h.notificationService.MarkAllRead(c.Request().Context(), currentUserID)
	if err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"updated": n})
}

func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	currentUserID, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.notificationService.Delete(c.Request().Context(), currentUserID, c.Param("id")); err != nil {
		return respondError(err)
	}
	return ok(c, echo.Map{"deleted": true})
}
