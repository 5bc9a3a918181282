package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// SubscriptionHandler manages subscriptions to an author's new notes and responses
type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

func (h *SubscriptionHandler) RegisterSubscriptionRoutes(g *echo.Group) {
	g.GET("/subscriptions", h.List)
	g.POST("/subscriptions", h.Subscribe)
	g.DELETE("/subscriptions", h.Unsubscribe)
}

func (h *SubscriptionHandler) List(c echo.Context) error {
	subs, err := h.subscriptions.List(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subs)
}

func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	var req models.SubscribeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.subscriptions.Subscribe(c.Request().Context(), getUserIDFromContext(c), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

// Unsubscribe takes ?author_id=&content_kind=
func (h *SubscriptionHandler) Unsubscribe(c echo.Context) error {
	authorID, err := queryID(c, "author_id")
	if err != nil {
		return err
	}
	kind := models.Kind(c.QueryParam("content_kind"))
	if err := h.subscriptions.Unsubscribe(c.Request().Context(), getUserIDFromContext(c), authorID, kind); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
