package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/middleware"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// UserHandler handles profile, search and report requests
type UserHandler struct {
	users   *services.UserService
	content *services.ContentService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users *services.UserService, content *services.ContentService) *UserHandler {
	return &UserHandler{users: users, content: content}
}

// RegisterProfileRoutes registers user routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/me", h.GetMe)
	g.PATCH("/me", h.UpdateMe)
	g.DELETE("/me", h.DeleteMe)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/most-recent-update", h.MostRecentUpdate)
	g.POST("/users/:id/report", h.ReportUser)
	g.POST("/reports", h.ReportContent)
}

func (h *UserHandler) GetMe(c echo.Context) error {
	id := getUserIDFromContext(c)
	user, err := h.users.Get(c.Request().Context(), id, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req models.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return err
	}
	middleware.SetLanguage(c, user.Language)
	return c.JSON(http.StatusOK, user)
}

// DeleteMe soft-deletes the caller's account
func (h *UserHandler) DeleteMe(c echo.Context) error {
	if err := h.users.DeleteSelf(c.Request().Context(), getUserIDFromContext(c)); err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{Name: middleware.AccessCookie, Path: "/", MaxAge: -1})
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.users.Get(c.Request().Context(), getUserIDFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user.ToCompact())
}

// SearchUsers matches ?q= against usernames
func (h *UserHandler) SearchUsers(c echo.Context) error {
	page := pageFromQuery(c)
	users, err := h.users.Search(c.Request().Context(), getUserIDFromContext(c), c.QueryParam("q"), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": users, "meta": pageMeta(page, len(users))})
}

func (h *UserHandler) MostRecentUpdate(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	at, err := h.content.MostRecentUpdate(c.Request().Context(), getUserIDFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"most_recent_update": at})
}

// ReportUser blocks the user in both directions
func (h *UserHandler) ReportUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req models.ReportUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.users.ReportUser(c.Request().Context(), getUserIDFromContext(c), id, req.Reason); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

// ReportContent hides a post or comment from the caller
func (h *UserHandler) ReportContent(c echo.Context) error {
	var req models.ReportContentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.users.ReportContent(c.Request().Context(), getUserIDFromContext(c), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}
