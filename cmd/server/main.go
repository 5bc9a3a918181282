package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/whoami-today/backend/internal/push"
	"github.com/anonto42/whoami-today/backend/internal/repositories"
	"github.com/anonto42/whoami-today/backend/internal/router"
	"github.com/anonto42/whoami-today/backend/internal/services"
	"github.com/anonto42/whoami-today/backend/pkg/config"
	"github.com/anonto42/whoami-today/backend/pkg/firebase"
	"github.com/anonto42/whoami-today/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.Init(cfg.Env)
	defer func() { _ = log.Sync() }()

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	if err := repositories.Migrate(db.Postgres); err != nil {
		zap.L().Fatal("Failed to migrate models", zap.Error(err))
	}
	zap.L().Info("PostgreSQL migrations completed.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := repositories.NewStore(db.Postgres)

	// Push goes through FCM when credentials are configured
	var dispatcher push.Dispatcher
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			zap.L().Fatal("Failed to initialize Firebase", zap.Error(err))
		}
		pushService := push.NewService(push.NewFCMSender(firebaseApp.MessagingClient), store.Devices, push.Options{
			Workers: cfg.PushWorkers,
			Timeout: cfg.PushTimeout,
		})
		// Workers outlive the signal; Stop drains them after Shutdown.
		pushService.Start(context.Background())
		defer pushService.Stop()
		dispatcher = pushService
	} else {
		zap.L().Warn("FIREBASE_CREDENTIALS_PATH not set, push notifications are disabled")
	}

	svc := services.New(store, services.Options{
		Dispatcher:    dispatcher,
		ChatMessages:  repositories.NewMongoChatMessageRepository(db.Mongo.Database(cfg.MongoDatabase)),
		AdminUsername: cfg.AdminUsername,
	})

	// Create Echo instance
	e := echo.New()
	router.SetupMiddleware(e, cfg)
	router.SetupRoutes(e, cfg, svc)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Graceful shutdown failed", zap.Error(err))
	}
}
