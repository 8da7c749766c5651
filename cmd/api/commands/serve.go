package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/civicdesk/municipal-service/internal/api/http"
	"github.com/civicdesk/municipal-service/internal/api/http/handlers"
	"github.com/civicdesk/municipal-service/internal/auth"
	"github.com/civicdesk/municipal-service/internal/events"
	"github.com/civicdesk/municipal-service/internal/observability"
	"github.com/civicdesk/municipal-service/internal/persistence"
	"github.com/civicdesk/municipal-service/internal/repository"
	"github.com/civicdesk/municipal-service/internal/service"
	"github.com/civicdesk/municipal-service/internal/worker"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the outbox relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if pg.Pool == nil {
		return fmt.Errorf("POSTGRES_DSN is required to serve")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			return err
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.Pool
	tx := repository.NewTransactor(pool)
	accountRepo := repository.NewCachedAccountRepository(
		repository.NewAccountRepository(pool),
		cfg.Auth.AccountCacheSize,
		cfg.Auth.AccountCacheTTL(),
	)
	notificationRepo := repository.NewNotificationRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	tokenMgr := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	accountService := service.NewAccountService(cfg.Auth, accountRepo, tokenMgr)
	requestService := service.NewRequestService(service.RequestDependencies{
		Transactor:       tx,
		RequestRepo:      repository.NewServiceRequestRepository(pool),
		HistoryRepo:      repository.NewRequestHistoryRepository(pool),
		NotificationRepo: notificationRepo,
		OutboxRepo:       outboxRepo,
		Metrics:          metrics,
	})
	notificationService := service.NewNotificationService(notificationRepo, dispatcher, logger)
	notificationService.RegisterHandlers()
	catalogService := service.NewCatalogService(service.CatalogDependencies{
		ProjectRepo:     repository.NewProjectRepository(pool),
		DepartmentRepo:  repository.NewDepartmentRepository(pool),
		PublicationRepo: repository.NewPublicationRepository(pool),
		ServiceRepo:     repository.NewMunicipalServiceRepository(pool),
		Cache:           persistence.NewCatalogCache(redis.Client),
		CacheTTL:        cfg.Cache.CatalogTTL(),
		Logger:          logger,
	})

	outboxDeps := worker.OutboxDependencies{
		Transactor: tx,
		OutboxRepo: outboxRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}
	if cfg.Broker.Enabled() {
		publisher, err := persistence.NewRabbitPublisher(cfg.Broker, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		outboxDeps.Publisher = publisher
	}
	relay := worker.NewOutboxWorker(cfg.Outbox, outboxDeps)
	if err := relay.Start(); err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout(), cfg.CORS.AllowedOrigins)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Accounts:       handlers.NewAccountsHandler(accountService),
		Requests:       handlers.NewRequestsHandler(requestService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		AuthMiddleware: auth.NewAuthMiddleware(tokenMgr, accountRepo),
		Metrics:        metrics,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		relay.Stop(context.Background())
		return fmt.Errorf("fiber listen: %w", err)
	case <-waitForShutdown(ctx):
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	relay.Stop(shutdownCtx)
	return nil
}

func waitForShutdown(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
		case <-ctx.Done():
		}
	}()
	return done
}
