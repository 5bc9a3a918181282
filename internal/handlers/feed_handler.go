package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/apperrors"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// FeedHandler serves the friends feed, newest first with a time cursor
type FeedHandler struct {
	content *services.ContentService
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(content *services.ContentService) *FeedHandler {
	return &FeedHandler{content: content}
}

// RegisterFeedRoutes registers feed routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed/:kind", h.GetFeed)
}

// GetFeed takes ?before=<RFC3339>&limit=
func (h *FeedHandler) GetFeed(c echo.Context) error {
	kind, ok := kindPaths[c.Param("kind")]
	if !ok {
		return apperrors.New(apperrors.NotFound, "feed %s", c.Param("kind"))
	}
	var before *time.Time
	if raw := c.QueryParam("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return apperrors.New(apperrors.UnknownField, "before")
		}
		before = &t
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	posts, err := h.content.Feed(c.Request().Context(), getUserIDFromContext(c), kind, before, limit)
	if err != nil {
		return err
	}
	var next *time.Time
	if len(posts) > 0 {
		t := posts[len(posts)-1].GetCreatedAt()
		next = &t
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    posts,
		"meta":    echo.Map{"next_before": next, "kind": kind},
	})
}
