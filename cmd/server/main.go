package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httphandler "github.com/ogurasousui/employee-link-api/internal/adapters/http/handler"
	"github.com/ogurasousui/employee-link-api/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-link-api/internal/core/employee"
	"github.com/ogurasousui/employee-link-api/internal/core/linking"
	"github.com/ogurasousui/employee-link-api/internal/platform/config"
	pg "github.com/ogurasousui/employee-link-api/internal/platform/db/postgres"
	"github.com/ogurasousui/employee-link-api/internal/platform/lock"
	"github.com/ogurasousui/employee-link-api/internal/platform/logging"
	"github.com/ogurasousui/employee-link-api/internal/platform/metrics"
	"github.com/ogurasousui/employee-link-api/internal/platform/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	txManager := pg.NewTransactionManager(dbPool)
	employeeRepo := postgres.NewEmployeeRepository(dbPool)
	userRepo := postgres.NewUserRepository(dbPool)
	linkRepo := postgres.NewLinkRepository(dbPool)
	appMetrics := metrics.New()

	linkOpts := []linking.Option{
		linking.WithTransactionManager(txManager),
		linking.WithRecorder(appMetrics),
		linking.WithLogger(logger.Named("linking")),
	}
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		linkOpts = append(linkOpts,
			linking.WithRunGuard(lock.NewRedisGuard(rdb, cfg.Linking.RunLockTTL)),
			linking.WithRunTimeout(cfg.Linking.RunLockTTL),
		)
		logger.Info("auto-link run guard enabled", zap.String("redis_addr", cfg.Redis.Addr))
	}

	employeeSvc := employee.NewService(employeeRepo, userRepo, nil, txManager)
	applier := linking.NewApplier(linkRepo, employeeRepo, userRepo, cfg.Linking.Concurrency)
	linkingSvc := linking.NewService(applier, linkRepo, linkOpts...)

	h, err := httphandler.New(employeeSvc, linkingSvc,
		httphandler.WithPinger(dbPool),
		httphandler.WithMetrics(appMetrics),
		httphandler.WithLogger(logger.Named("http")),
	)
	if err != nil {
		return err
	}
	httpServer := server.New(cfg.Server, h.Routes())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.ListenAddr))
		return httpServer.Run(gctx)
	})

	if cfg.Health.ListenAddr != "" {
		healthServer := server.NewHealthServer(cfg.Health.ListenAddr)
		healthServer.SetServing(true)
		g.Go(func() error {
			logger.Info("gRPC health server listening", zap.String("addr", cfg.Health.ListenAddr))
			return healthServer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
