package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/goalsocial/backend/internal/handlers"
	"github.com/anonto42/goalsocial/backend/internal/router"
	"github.com/anonto42/goalsocial/backend/pkg/config"
	"github.com/anonto42/goalsocial/backend/pkg/firebase"
	"github.com/anonto42/goalsocial/backend/pkg/logger"
	"github.com/anonto42/goalsocial/backend/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if cfg.JWTSecret == "" {
		zlog.Fatal("JWT_SECRET environment variable not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize databases", zap.Error(err))
	}
	defer db.CloseDB()

	deps := router.Deps{
		Config:   cfg,
		Logger:   zlog,
		Postgres: db.Postgres,
		Mongo:    db.Mongo,
		Redis:    db.Redis,
	}

	// Firebase is only needed for push delivery
	if cfg.PushEnabled {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			zlog.Fatal("failed to initialize Firebase", zap.Error(err))
		}
		deps.Messaging = firebaseApp.Messaging
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(zlog)

	config.SetupMiddleware(e, zlog)
	if err := router.SetupRoutes(ctx, e, deps); err != nil {
		zlog.Fatal("failed to set up routes", zap.Error(err))
	}

	go func() {
		zlog.Info("server starting", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}
