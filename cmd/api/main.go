package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmarroquin/clinicstock-backend/api/controllers"
	"github.com/dmarroquin/clinicstock-backend/api/routes"
	"github.com/dmarroquin/clinicstock-backend/internal/alerts"
	"github.com/dmarroquin/clinicstock-backend/internal/dispatch"
	"github.com/dmarroquin/clinicstock-backend/internal/items"
	"github.com/dmarroquin/clinicstock-backend/internal/ledger"
	"github.com/dmarroquin/clinicstock-backend/internal/notifications"
	"github.com/dmarroquin/clinicstock-backend/internal/realtime"
	"github.com/dmarroquin/clinicstock-backend/internal/sweep"
	"github.com/dmarroquin/clinicstock-backend/internal/users"
	"github.com/dmarroquin/clinicstock-backend/pkg/config"
	"github.com/dmarroquin/clinicstock-backend/pkg/db"
	"github.com/dmarroquin/clinicstock-backend/pkg/env"
	"github.com/dmarroquin/clinicstock-backend/pkg/logger"
	"github.com/dmarroquin/clinicstock-backend/pkg/metrics"
	"github.com/dmarroquin/clinicstock-backend/pkg/migrate"
	"github.com/dmarroquin/clinicstock-backend/pkg/pubsub"
	"github.com/dmarroquin/clinicstock-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	itemsRepo := items.NewRepository(dbClient.DB())
	itemsService, err := items.NewService(itemsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create items service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(
		dbClient,
		itemsRepo,
		ledger.NewRepository(dbClient.DB()),
		logg,
		cfg.Sweep.LedgerRetries,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	registry := realtime.NewRegistry()
	broadcaster, err := realtime.NewBroadcaster(registry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create broadcaster", err)
		os.Exit(1)
	}

	publisher, err := dispatch.NewPubSubPublisher(pubsubClient.AlertsPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create alert publisher", err)
		os.Exit(1)
	}

	auditRepo := dispatch.NewAuditRepository(dbClient.DB())
	dispatcher, err := dispatch.NewDispatcher(
		users.NewRepository(dbClient.DB()),
		auditRepo,
		publisher,
		broadcaster,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	scanner, err := alerts.NewScanner(itemsRepo, cfg.Sweep.ExpiryWindowDays)
	if err != nil {
		logg.Error(context.Background(), "failed to create alert scanner", err)
		os.Exit(1)
	}

	suppressor, err := alerts.NewRedisSuppressor(redisClient, cfg.Sweep.SuppressionWindow, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create alert suppressor", err)
		os.Exit(1)
	}

	sweepMetrics := metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer)

	engine, err := alerts.NewEngine(scanner, suppressor, dispatcher, logg, sweepMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create alert engine", err)
		os.Exit(1)
	}

	stockListener, err := realtime.NewStockChangeListener(broadcaster)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock change listener", err)
		os.Exit(1)
	}

	// Order matters: the engine sees downgrades first so alerts carry the
	// state the realtime push describes.
	ledgerService.RegisterListener(engine)
	ledgerService.RegisterListener(stockListener)

	sweepService, err := buildSweepService(cfg, logg, engine, auditRepo, notifications.NewRepository(dbClient.DB()), redisClient, sweepMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		if err := sweepService.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(runCtx, "sweep service stopped unexpectedly", err)
		}
	}()

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config: cfg,
			Logger: logg,
			Readiness: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"pubsub":   pubsubClient,
			},
			Items:         itemsService,
			Ledger:        ledgerService,
			Notifications: notificationsService,
			AlertScanner:  scanner,
			Registry:      registry,
			Broadcaster:   broadcaster,
			Metrics:       prometheus.DefaultGatherer,
		}),
	}

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

func buildSweepService(
	cfg *config.Config,
	logg *logger.Logger,
	engine *alerts.Engine,
	auditRepo dispatch.AuditRepository,
	notificationsRepo notifications.Repository,
	redisClient *redis.Client,
	sweepMetrics *metrics.SweepJobMetrics,
) (*sweep.Service, error) {
	lock, err := sweep.NewRedisLock(redisClient, redisClient.SweepLockKey(cfg.App.Env), cfg.Sweep.LockTTL)
	if err != nil {
		return nil, err
	}

	alertSweep, err := sweep.NewAlertSweepJob(sweep.AlertSweepJobParams{
		Logger: logg,
		Engine: engine,
	})
	if err != nil {
		return nil, err
	}

	alertLogCleanup, err := sweep.NewAlertLogCleanupJob(sweep.AlertLogCleanupJobParams{
		Logger:     logg,
		Repository: auditRepo,
		Retention:  cfg.Retention.AlertLogDays,
	})
	if err != nil {
		return nil, err
	}

	notificationCleanup, err := sweep.NewNotificationCleanupJob(sweep.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
		Retention:  cfg.Retention.NotificationDays,
	})
	if err != nil {
		return nil, err
	}

	registry := sweep.NewRegistry(
		alertSweep,
		sweep.Throttle(alertLogCleanup, 24*time.Hour),
		sweep.Throttle(notificationCleanup, 24*time.Hour),
	)

	return sweep.NewService(sweep.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  sweepMetrics,
		Interval: cfg.Sweep.Interval,
	})
}
