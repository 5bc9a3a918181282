package router

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/chat"
	"github.com/anonto42/whoami-today/backend/internal/handlers"
	"github.com/anonto42/whoami-today/backend/internal/middleware"
	"github.com/anonto42/whoami-today/backend/internal/services"
	"github.com/anonto42/whoami-today/backend/pkg/config"
	"github.com/anonto42/whoami-today/backend/validators"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, cfg *config.Config) {
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler
	e.Validator = validators.NewValidator()

	e.Use(eMiddleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Language())
	e.Use(middleware.ZapLogger())
	e.Use(eMiddleware.CORSWithConfig(eMiddleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowCredentials: true,
	}))
	zap.L().Info("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, cfg *config.Config, svc *services.Services) {
	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Unprotected routes for authentication ---
	authHandler := handlers.NewAuthHandler(svc.Users, cfg.JWTSecret, cfg.IsProduction())
	authHandler.RegisterAuthRoutes(e.Group("/api/v1/auth"))
	zap.L().Info("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	api.Use(middleware.CSRF(allowOrigin(cfg)))
	authHandler.RegisterRefreshRoute(api)

	handlers.NewUserHandler(svc.Users, svc.Content).RegisterProfileRoutes(api)
	zap.L().Info("User routes configured.")

	handlers.NewFriendshipHandler(svc.Friends, svc.Connections, svc.Users).RegisterFriendshipRoutes(api)
	zap.L().Info("Friendship routes configured.")

	handlers.NewPostHandler(svc.Content).RegisterPostRoutes(api)
	handlers.NewFeedHandler(svc.Content).RegisterFeedRoutes(api)
	zap.L().Info("Post and feed routes configured.")

	handlers.NewCommentHandler(svc.Interactions).RegisterCommentRoutes(api)
	handlers.NewLikeHandler(svc.Interactions).RegisterLikeRoutes(api)
	zap.L().Info("Comment, like and reaction routes configured.")

	handlers.NewQuestionHandler(svc.Questions, svc.Users).RegisterQuestionRoutes(api)
	zap.L().Info("Question routes configured.")

	handlers.NewNotificationHandler(svc.Notifications).RegisterNotificationRoutes(api)
	handlers.NewSubscriptionHandler(svc.Subscriptions).RegisterSubscriptionRoutes(api)
	zap.L().Info("Notification routes configured.")

	hub := chat.NewHub(svc.Chat, allowOrigin(cfg))
	svc.OnRoomClosed(hub.CloseRoom)
	chatHandler := handlers.NewChatHandler(svc.Chat, svc.Users, hub)
	chatHandler.RegisterChatRoutes(api)
	ws := e.Group("/ws")
	ws.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	chatHandler.RegisterSocketRoutes(ws)
	zap.L().Info("Chat routes configured.")

	zap.L().Info("All routes configured.")
}

// allowOrigin accepts requests and websocket upgrades from the frontend or an
// allowed host.
func allowOrigin(cfg *config.Config) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || origin == cfg.FrontendURL {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, host := range cfg.AllowedHosts {
			if host == "*" || host == u.Host || host == u.Hostname() {
				return true
			}
		}
		return false
	}
}
