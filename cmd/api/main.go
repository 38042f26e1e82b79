package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/auth-service/internal/api/http"
	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
	"github.com/spec-kit/auth-service/internal/worker"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	userRepo := repository.NewUserRepository(pg.Pool)
	revocationRepo := repository.NewRevocationRepository(redis.Client)

	engine := service.NewEnrichmentEngine(service.EnrichmentDependencies{
		UserRepo:         userRepo,
		ConfirmationRepo: repository.NewTwoFactorConfirmationRepository(pg.Pool),
		Metrics:          metrics,
		Logger:           logger,
	})

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuthEventWorker(dispatcher, engine, logger)
	notifications := service.NewNotificationService(dispatcher, service.NewLogMailer(logger), logger, cfg.Notification)
	notifications.RegisterHandlers()
	go notifications.Run(ctx)

	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:              userRepo,
		AccountRepo:           repository.NewAccountRepository(pg.Pool),
		VerificationTokenRepo: repository.NewVerificationTokenRepository(pg.Pool),
		PasswordResetRepo:     repository.NewPasswordResetRepository(pg.Pool),
		RevocationRepo:        revocationRepo,
		Engine:                engine,
		Dispatcher:            dispatcher,
		Logger:                logger,
	})

	cookies := auth.CookieOptions{Name: cfg.Auth.SessionCookie, Secure: cfg.Auth.CookieSecure}
	sessionMiddleware := auth.NewSessionMiddleware(authService.TokenManager(), engine, revocationRepo, cookies, logger)
	routeGate := auth.NewRouteGate(auth.NewRouteTable(cfg.Routes), metrics)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth: handlers.NewAuthHandler(authService, handlers.AuthHandlerOptions{
			Cookies:              cookies,
			OAuthBridgeSecret:    cfg.Auth.OAuthBridgeSecret,
			DefaultLoginRedirect: cfg.Routes.DefaultLoginRedirect,
		}),
		Pages:         handlers.NewPagesHandler(),
		Admin:         handlers.NewAdminHandler(),
		Metrics:       metrics,
		Session:       sessionMiddleware,
		Gate:          routeGate,
		APIAuthPrefix: cfg.Routes.APIAuthPrefix,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("fiber shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
