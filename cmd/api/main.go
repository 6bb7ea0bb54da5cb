package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/crm-gateway/internal/api/http"
	"github.com/spec-kit/crm-gateway/internal/api/http/handlers"
	"github.com/spec-kit/crm-gateway/internal/auth"
	"github.com/spec-kit/crm-gateway/internal/config"
	"github.com/spec-kit/crm-gateway/internal/events"
	"github.com/spec-kit/crm-gateway/internal/observability"
	"github.com/spec-kit/crm-gateway/internal/persistence"
	"github.com/spec-kit/crm-gateway/internal/ratelimit"
	"github.com/spec-kit/crm-gateway/internal/repository"
	"github.com/spec-kit/crm-gateway/internal/service"
	"github.com/spec-kit/crm-gateway/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	codec, err := auth.NewCodec(cfg.Auth)
	if err != nil {
		logger.Fatal("invalid auth configuration", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	limiter, err := ratelimit.New(cfg.RateLimit, redis.ClientHandle())
	if err != nil {
		logger.Fatal("failed to init rate limiter", zap.Error(err))
	}
	logger.Info("rate limiting configured", zap.String("backend", cfg.RateLimit.Backend))

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuthEventWorker(dispatcher, logger)

	principals := repository.NewPrincipalRepository(pg.PoolHandle())
	authService := service.NewAuthService(codec, principals, cfg.Auth.LookupTimeout(), logger, service.WithDispatcher(dispatcher))
	authMiddleware := auth.NewAuthMiddleware(codec, principals, cfg.Auth.LookupTimeout(), logger)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		Limiter:        limiter,
		RequestTimeout: cfg.App.RequestTimeout(),
	})

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
		"postgres": pg,
		"redis":    redis,
	})
	authHandler := handlers.NewAuthHandler(authService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Auth:           authHandler,
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
