package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// CommentHandler handles comment-related HTTP requests
type CommentHandler struct {
	interactions *services.InteractionService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(interactions *services.InteractionService) *CommentHandler {
	return &CommentHandler{interactions: interactions}
}

// RegisterCommentRoutes registers comment routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/comments", h.CreateComment)
	g.GET("/comments", h.ListComments)
	g.PATCH("/comments/:id", h.UpdateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment comments on a post or replies to a comment
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.interactions.CreateComment(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// ListComments takes ?parent_kind=&parent_id=
func (h *CommentHandler) ListComments(c echo.Context) error {
	parent, err := parentFromQuery(c)
	if err != nil {
		return err
	}
	page := pageFromQuery(c)
	comments, err := h.interactions.ListComments(c.Request().Context(), getUserIDFromContext(c), parent, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": comments, "meta": pageMeta(page, len(comments))})
}

func (h *CommentHandler) UpdateComment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.interactions.UpdateComment(c.Request().Context(), getUserIDFromContext(c), id, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.interactions.DeleteComment(c.Request().Context(), getUserIDFromContext(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
