package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/marketplace-service/internal/api/http"
	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/observability"
	"github.com/spec-kit/marketplace-service/internal/persistence"
	"github.com/spec-kit/marketplace-service/internal/repository"
	"github.com/spec-kit/marketplace-service/internal/service"
	"github.com/spec-kit/marketplace-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	store := repository.NewStore(pg.PoolHandle())
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	var sink service.EventSink
	if publisher := events.NewStreamPublisher(redis.Client, cfg.Notification.EventsStream); publisher != nil {
		sink = publisher
	}
	notifications := service.NewNotificationService(dispatcher, sink, logger, cfg.Notification)
	worker.StartNotificationWorker(notifications, logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	sessions := auth.NewRedisSessionStore(redis.Client)

	accounts := service.NewAccountService(service.AccountDependencies{
		UserRepo:     store.Users(),
		Sessions:     sessions,
		TokenManager: tokens,
		Hasher:       auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Logger:       logger,
	})
	catalog := service.NewCatalogService(service.CatalogDependencies{
		Store:      store,
		Cache:      persistence.NewViewCache[[]domain.Service](redis.Client, cfg.Cache.ServicesTTL(), logger),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ledger := service.NewLedgerService(service.LedgerDependencies{
		Store:         store,
		Dispatcher:    dispatcher,
		Logger:        logger,
		DebitOnCancel: cfg.Ledger.DebitOnCancel,
	})

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Users:          handlers.NewUsersHandler(accounts, ledger),
		Services:       handlers.NewServicesHandler(catalog),
		Transactions:   handlers.NewTransactionsHandler(ledger),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, sessions, store.Users()),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
