package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/anonto42/whoami-today/backend/internal/middleware"
	"github.com/anonto42/whoami-today/backend/internal/models"
	"github.com/anonto42/whoami-today/backend/internal/services"
)

// AuthHandler handles signup, login and token refresh
type AuthHandler struct {
	users        *services.UserService
	jwtSecret    string
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users *services.UserService, jwtSecret string, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		users:        users,
		jwtSecret:    jwtSecret,
		secureCookie: secureCookie,
	}
}

// RegisterAuthRoutes registers the unauthenticated routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.GET("/check-username", h.CheckUsername)
	g.GET("/check-email", h.CheckEmail)
}

// RegisterRefreshRoute needs an authenticated group
func (h *AuthHandler) RegisterRefreshRoute(g *echo.Group) {
	g.POST("/auth/refresh", h.Refresh)
}

// Signup creates an account and logs it in
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.Signup(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return h.issue(c, http.StatusCreated, user)
}

// Login checks credentials and returns a token
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.users.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return h.issue(c, http.StatusOK, user)
}

// Refresh re-issues the token of a still-valid session
func (h *AuthHandler) Refresh(c echo.Context) error {
	id := getUserIDFromContext(c)
	user, err := h.users.Get(c.Request().Context(), id, id)
	if err != nil {
		return err
	}
	return h.issue(c, http.StatusOK, user)
}

// Logout clears the access cookie
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.cookie("", time.Unix(0, 0)))
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) CheckUsername(c echo.Context) error {
	if err := h.users.CheckUsername(c.Request().Context(), c.QueryParam("username")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"available": true})
}

func (h *AuthHandler) CheckEmail(c echo.Context) error {
	if err := h.users.CheckEmail(c.Request().Context(), c.QueryParam("email")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"available": true})
}

func (h *AuthHandler) issue(c echo.Context, status int, user *models.User) error {
	now := time.Now()
	token, err := middleware.SignToken(h.jwtSecret, user, now)
	if err != nil {
		return err
	}
	c.SetCookie(h.cookie(token, now.Add(middleware.TokenTTL)))
	return c.JSON(status, echo.Map{"token": token, "user": user})
}

func (h *AuthHandler) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.AccessCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
