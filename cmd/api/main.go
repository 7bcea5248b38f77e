package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/media-dispatch/internal/config"
	"github.com/kursadbilgin/media-dispatch/internal/handler"
	"github.com/kursadbilgin/media-dispatch/internal/infra/postgresql"
	"github.com/kursadbilgin/media-dispatch/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/media-dispatch/internal/infra/redis"
	"github.com/kursadbilgin/media-dispatch/internal/notify"
	"github.com/kursadbilgin/media-dispatch/internal/observability"
	"github.com/kursadbilgin/media-dispatch/internal/repository"
	"github.com/kursadbilgin/media-dispatch/internal/service"
	"github.com/kursadbilgin/media-dispatch/internal/shopify"
	"github.com/kursadbilgin/media-dispatch/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxUploadBody bounds a whole multipart submission; a 30-code batch of
// full-resolution product shots fits comfortably.
const maxUploadBody = 256 << 20

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.UploadRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	batchRepo := repository.NewGormBatchRepo(db)
	opRepo := repository.NewGormProductOpRepo(db)
	storeRepo := repository.NewGormStoreRepo(db)

	metrics := observability.NewMetrics()

	clientFactory := func(creds shopify.Credentials) (service.ProductAPI, error) {
		return shopify.NewClient(creds, rateLimiter, logger)
	}

	batchService, err := service.NewBatchService(batchRepo, opRepo, storeRepo, clientFactory, logger)
	if err != nil {
		logger.Fatal("batch service initialization failed", zap.Error(err))
	}
	batchService.SetMetrics(metrics)

	if cfg.BatchWebhookURL != "" {
		notifier, err := notify.NewWebhookNotifier(cfg.BatchWebhookURL)
		if err != nil {
			logger.Fatal("batch webhook initialization failed", zap.Error(err))
		}
		batchService.SetNotifier(notifier)
	}

	storeService, err := service.NewStoreService(storeRepo, logger)
	if err != nil {
		logger.Fatal("store service initialization failed", zap.Error(err))
	}

	if cfg.HasBootstrapStore() {
		bootstrapCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := storeService.EnsureBootstrap(bootstrapCtx, "", cfg.ShopDomain, cfg.ShopAPIToken, cfg.ShopAPIVersion)
		cancel()
		if err != nil {
			logger.Fatal("store bootstrap failed", zap.Error(err))
		}
	}

	sweeper, err := service.NewRetentionSweeper(
		opRepo,
		time.Duration(cfg.RetentionScanMinutes)*time.Minute,
		time.Duration(cfg.RetentionDays)*24*time.Hour,
		logger,
	)
	if err != nil {
		logger.Fatal("retention sweeper initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
		BodyLimit:    maxUploadBody,
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterBatchRoutes(app, batchService); err != nil {
		logger.Fatal("batch route registration failed", zap.Error(err))
	}
	if err := handler.RegisterStoreRoutes(app, storeService); err != nil {
		logger.Fatal("store route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("media-dispatch api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		return sweeper.Start(groupCtx)
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}
}
