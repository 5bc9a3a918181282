package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/middleware"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// NotificationHandler handles the inbox and push device registration
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread", h.GetUnread)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.POST("/notifications/read", h.MarkAsRead)
	g.POST("/notifications/read-all", h.MarkAllAsRead)
	g.POST("/devices", h.RegisterDevice)
	g.DELETE("/devices/:registrationId", h.UnregisterDevice)
}

// GetNotifications returns visible notifications, optionally ?type=friend_request|response_request
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	return h.list(c, false)
}

func (h *NotificationHandler) GetUnread(c echo.Context) error {
	return h.list(c, true)
}

func (h *NotificationHandler) list(c echo.Context, unreadOnly bool) error {
	page := pageFromQuery(c)
	filter := repositories.NotificationFilter{UnreadOnly: unreadOnly, TargetKind: models.Kind(c.QueryParam("type"))}
	list, err := h.notifications.List(c.Request().Context(), getUserIDFromContext(c), middleware.LanguageOf(c), filter, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{"notifications": list},
		"meta":    pageMeta(page, len(list)),
	})
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	count, err := h.notifications.UnreadCount(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"unread_count": count})
}

// MarkAsRead takes {"ids": [...]}. Repeats are no-ops.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	ids, err := idsFromBody(c)
	if err != nil {
		return err
	}
	n, err := h.notifications.MarkRead(c.Request().Context(), getUserIDFromContext(c), ids)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"marked": n})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	n, err := h.notifications.MarkAllRead(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"marked": n})
}

// RegisterDevice upserts a push registration for the caller
func (h *NotificationHandler) RegisterDevice(c echo.Context) error {
	var req models.RegisterDeviceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	device, err := h.notifications.RegisterDevice(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, device)
}

func (h *NotificationHandler) UnregisterDevice(c echo.Context) error {
	if err := h.notifications.UnregisterDevice(c.Request().Context(), c.Param("registrationId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
