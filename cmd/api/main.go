package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/tour-service/internal/api/http"
	"github.com/spec-kit/tour-service/internal/api/http/handlers"
	"github.com/spec-kit/tour-service/internal/auth"
	"github.com/spec-kit/tour-service/internal/config"
	"github.com/spec-kit/tour-service/internal/mail"
	"github.com/spec-kit/tour-service/internal/observability"
	"github.com/spec-kit/tour-service/internal/persistence"
	"github.com/spec-kit/tour-service/internal/ratelimit"
	"github.com/spec-kit/tour-service/internal/repository"
	"github.com/spec-kit/tour-service/internal/service"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.PoolHandle() != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)

	var userStore repository.UserStore
	if pool := pg.PoolHandle(); pool != nil {
		userStore = repository.NewUserStore(pool, hasher)
	} else {
		logger.Warn("running with in-memory user store; data will not survive restarts")
		userStore = repository.NewMemoryStore(hasher)
	}

	mailer := mail.New(cfg.Mail, logger)
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserStore: userStore,
		Mailer:    mailer,
		Hasher:    hasher,
		Logger:    logger,
	})
	userService := service.NewUserService(userStore)
	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userStore)

	var limiterHandler fiber.Handler
	if cfg.RateLimit.Enabled {
		limiterHandler = ratelimit.New(redis.Client, cfg.RateLimit, logger).Middleware()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.App.RequestTimeout(),
		Development:    !cfg.App.IsProduction(),
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService, cfg.App.IsProduction()),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: authMiddleware,
		RateLimiter:    limiterHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
