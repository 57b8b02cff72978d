package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/punguzo/mlm_backend/app"
	"github.com/punguzo/mlm_backend/config"
	"github.com/punguzo/mlm_backend/controllers"
	"github.com/punguzo/mlm_backend/logging"
	"github.com/punguzo/mlm_backend/middleware"
	"github.com/punguzo/mlm_backend/routes"
	"github.com/punguzo/mlm_backend/utils"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	cfg := config.Load()
	if err := logging.InitLogger(cfg.IsProduction(), cfg.LogLevel); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logging.Sync()
	logger := logging.Logger

	if envErr != nil {
		logger.Warn(".env file not found", zap.Error(envErr))
	}
	for _, warning := range cfg.Warnings {
		logger.Warn("config value ignored", zap.String("reason", warning))
	}

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	go application.Hub.Run()

	if err := utils.InitializeStorage(cfg.UploadsDir); err != nil {
		logger.Fatal("failed to prepare uploads directory", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.NewValidator()

	rateLimiter := middleware.NewRateLimiter(cfg.RegistrationRatePerHour)
	go rateLimiter.Cleanup(ctx.Done())

	e.Use(echoMiddleware.Recover())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.GlobalCORS(cfg.CORSAllowedOrigins))
	e.Use(middleware.SecurityHeaders())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.Static("/uploads", cfg.UploadsDir)

	blacklist := middleware.NewTokenBlacklist(application.Redis)
	routes.SetupRoutes(e, routes.Handlers{
		Auth: controllers.NewAuthController(application.Registration, application.MemberService, controllers.AuthTokenConfig{
			Secret:     cfg.JWTSecret,
			AccessTTL:  cfg.JWTAccessExpiry,
			RefreshTTL: cfg.JWTRefreshExpiry,
			Blacklist:  blacklist,
		}, cfg.UploadsDir),
		Members:       controllers.NewMemberController(application.MemberService, cfg.UploadsDir),
		Commissions:   controllers.NewCommissionController(application.Commissions, application.Points),
		Orders:        controllers.NewOrderController(application.Orders),
		Products:      controllers.NewProductController(application.Catalog, application.Popularity, application.Recommendations),
		CatalogSync:   controllers.NewCatalogSyncController(application.CatalogSync),
		Notifications: controllers.NewNotificationController(application.Notifications),
		Payments:      controllers.NewPaymentController(application.Payments),
		Hub:           application.Hub,
	}, cfg.JWTSecret, blacklist, application.Members)

	if cfg.CatalogSyncInterval > 0 {
		logger.Info("scheduled catalog sync enabled", zap.Duration("interval", cfg.CatalogSyncInterval))
		go application.RunCatalogSync(ctx, cfg.CatalogSyncInterval)
	}

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	application.Close(shutdownCtx)
}
