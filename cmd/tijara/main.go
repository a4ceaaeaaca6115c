package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tijara-apps/tijara/internal/ads"
	"github.com/tijara-apps/tijara/internal/app"
	"github.com/tijara-apps/tijara/internal/auth"
	"github.com/tijara-apps/tijara/internal/cogs"
	"github.com/tijara-apps/tijara/internal/credentials"
	"github.com/tijara-apps/tijara/internal/dashboard"
	"github.com/tijara-apps/tijara/internal/observability"
	"github.com/tijara-apps/tijara/internal/platform/cache"
	"github.com/tijara-apps/tijara/internal/platform/db"
	"github.com/tijara-apps/tijara/internal/providers/courier"
	"github.com/tijara-apps/tijara/internal/providers/social"
	"github.com/tijara-apps/tijara/internal/providers/storefront"
	"github.com/tijara-apps/tijara/internal/shipping"
	"github.com/tijara-apps/tijara/internal/window"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	storefrontClient := storefront.NewClient(cfg.StorefrontBaseURL, cfg.StorefrontAPIVersion, logger)
	adsClient := social.NewClient(cfg.AdsBaseURL, cfg.AdsAppID, cfg.AdsAppSecret, logger)
	courierClient := courier.NewClient(cfg.CourierBaseURL, logger)

	resolver := window.NewResolver()

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, cfg.DevLoginPasswordHash)
	authHandler := auth.NewHandler(logger, authService, cfg.IsProduction())

	credsRepo := credentials.NewRepository(pool)
	credsService := credentials.NewService(credsRepo)

	cogsRepo := cogs.NewRepository(pool)
	cogsService := cogs.NewService(cogsRepo, logger)

	dashCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	cogsHandler := cogs.NewHandler(logger, cogsService, storefrontClient, resolver, dashCache)
	dashService := dashboard.NewService(storefrontClient, adsClient, courierClient, cogsService, credsService, dashCache, logger)
	dashHandler := dashboard.NewHandler(logger, dashService, resolver)

	adsService := ads.NewService(adsClient, credsService)
	adsHandler := ads.NewHandler(logger, adsService, resolver)

	shippingService := shipping.NewService(courierClient, credsService)
	shippingHandler := shipping.NewHandler(logger, shippingService)

	metrics := observability.NewMetrics()
	storefrontClient.SetObserver(metrics)
	adsClient.SetObserver(metrics)
	courierClient.SetObserver(metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthService:      authService,
		AuthHandler:      authHandler,
		DashboardHandler: dashHandler,
		CogsHandler:      cogsHandler,
		AdsHandler:       adsHandler,
		ShippingHandler:  shippingHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
