package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/jwt-auth-service/internal/api/http"
	"github.com/spec-kit/jwt-auth-service/internal/api/http/handlers"
	"github.com/spec-kit/jwt-auth-service/internal/auth"
	"github.com/spec-kit/jwt-auth-service/internal/config"
	"github.com/spec-kit/jwt-auth-service/internal/events"
	"github.com/spec-kit/jwt-auth-service/internal/observability"
	"github.com/spec-kit/jwt-auth-service/internal/persistence"
	"github.com/spec-kit/jwt-auth-service/internal/repository"
	"github.com/spec-kit/jwt-auth-service/internal/service"
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

	metrics := observability.NewMetrics()

	tokens, err := auth.NewTokenProvider([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL(),
		auth.WithLogger(logger.Named("token")),
		auth.WithMetrics(metrics),
	)
	if err != nil {
		logger.Fatal("failed to init token provider", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger.Named("audit")).RegisterHandlers()

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	userDetails := service.NewUserDetailsService(userRepo, redis.Handle(), cfg.Auth.PrincipalCacheTTL(), logger)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, userDetails, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(authService),
		AuthMiddleware: authMiddleware,
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
