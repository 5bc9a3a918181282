package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// LikeHandler handles likes and emoji reactions
type LikeHandler struct {
	interactions *services.InteractionService
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(interactions *services.InteractionService) *LikeHandler {
	return &LikeHandler{interactions: interactions}
}

// RegisterLikeRoutes registers like and reaction routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/likes", h.Like)
	g.DELETE("/likes", h.Unlike)
	g.GET("/likes", h.ListLikes)
	g.POST("/reactions", h.React)
	g.DELETE("/reactions", h.Unreact)
	g.GET("/reactions", h.ListReactions)
}

func (h *LikeHandler) Like(c echo.Context) error {
	var req models.CreateLikeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	like, err := h.interactions.Like(c.Request().Context(), getUserIDFromContext(c), models.Ref{Kind: req.ParentKind, ID: req.ParentID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, like)
}

// Unlike takes ?parent_kind=&parent_id=
func (h *LikeHandler) Unlike(c echo.Context) error {
	parent, err := parentFromQuery(c)
	if err != nil {
		return err
	}
	if err := h.interactions.Unlike(c.Request().Context(), getUserIDFromContext(c), parent); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *LikeHandler) ListLikes(c echo.Context) error {
	parent, err := parentFromQuery(c)
	if err != nil {
		return err
	}
	summary, err := h.interactions.ListLikes(c.Request().Context(), getUserIDFromContext(c), parent, pageFromQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *LikeHandler) React(c echo.Context) error {
	var req models.CreateReactionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	reaction, err := h.interactions.React(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, reaction)
}

// Unreact takes ?parent_kind=&parent_id=&emoji=
func (h *LikeHandler) Unreact(c echo.Context) error {
	parent, err := parentFromQuery(c)
	if err != nil {
		return err
	}
	emoji := c.QueryParam("emoji")
	if emoji == "" {
		return apperrors.New(apperrors.UnknownField, "emoji")
	}
	if err := h.interactions.Unreact(c.Request().Context(), getUserIDFromContext(c), parent, emoji); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *LikeHandler) ListReactions(c echo.Context) error {
	parent, err := parentFromQuery(c)
	if err != nil {
		return err
	}
	reactions, err := h.interactions.ListReactions(c.Request().Context(), getUserIDFromContext(c), parent)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reactions)
}
