package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/tijara-apps/tijara/internal/app"
	"github.com/tijara-apps/tijara/internal/auth"
	"github.com/tijara-apps/tijara/internal/cogs"
	"github.com/tijara-apps/tijara/internal/credentials"
	"github.com/tijara-apps/tijara/internal/dashboard"
	"github.com/tijara-apps/tijara/internal/platform/cache"
	"github.com/tijara-apps/tijara/internal/platform/db"
	"github.com/tijara-apps/tijara/internal/providers/courier"
	"github.com/tijara-apps/tijara/internal/providers/social"
	"github.com/tijara-apps/tijara/internal/providers/storefront"
	"github.com/tijara-apps/tijara/internal/window"
	"github.com/tijara-apps/tijara/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Warn("redis unavailable, warmed dashboards will not be cached", slog.Any("error", err))
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

	authService := auth.NewService(auth.NewRepository(pool), cfg.DevLoginPasswordHash)
	credsService := credentials.NewService(credentials.NewRepository(pool))
	cogsService := cogs.NewService(cogs.NewRepository(pool), logger)

	dashCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	dashService := dashboard.NewService(storefrontClient, adsClient, courierClient, cogsService, credsService, dashCache, logger)

	warmupJob := jobs.NewDashboardWarmupJob(dashService, credsService, authService, resolver, logger)
	backfillJob := jobs.NewCogsBackfillJob(cogsService, storefrontClient, credsService, authService, resolver, logger)

	jobMetrics := jobs.NewMetrics(nil)

	warmupTask, err := jobs.NewDashboardWarmupTask(jobs.DashboardWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	backfillTask, err := jobs.NewCogsBackfillTask(jobs.CogsBackfillPayload{Preset: window.PresetYesterday})
	if err != nil {
		logger.Error("build backfill task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardWarmup, Handler: jobs.Instrument(jobMetrics, jobs.TaskDashboardWarmup, warmupJob.Handle)},
			{Type: jobs.TaskCogsBackfill, Handler: jobs.Instrument(jobMetrics, jobs.TaskCogsBackfill, backfillJob.Handle)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 1 * * *", Task: backfillTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 2 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
