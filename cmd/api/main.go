package main

import (
	"context"
	"net/http"
	"os"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tillworks/tillworks-backend/api/controllers"
	"github.com/tillworks/tillworks-backend/api/routes"
	"github.com/tillworks/tillworks-backend/internal/audit"
	"github.com/tillworks/tillworks-backend/internal/orders"
	"github.com/tillworks/tillworks-backend/internal/reconcile"
	"github.com/tillworks/tillworks-backend/internal/sessions"
	"github.com/tillworks/tillworks-backend/pkg/config"
	"github.com/tillworks/tillworks-backend/pkg/db"
	"github.com/tillworks/tillworks-backend/pkg/logger"
	"github.com/tillworks/tillworks-backend/pkg/metrics"
	"github.com/tillworks/tillworks-backend/pkg/migrate"
	"github.com/tillworks/tillworks-backend/pkg/pubsub"
	"github.com/tillworks/tillworks-backend/pkg/redis"
)

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

	var pubsubClient *pubsub.Client
	var pubsubPinger controllers.Pinger
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		pubsubPinger = pubsubClient
	} else {
		logg.Warn(context.Background(), "no gcp project configured, audit publishing disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	drawerMetrics := metrics.NewDrawerMetrics(registry)

	sessionRepo := sessions.NewRepository(dbClient.DB())

	sessionService, err := sessions.NewService(sessionRepo, logg, drawerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}

	var auditPublisher *gcppubsub.Publisher
	if pubsubClient != nil {
		auditPublisher = pubsubClient.AuditPublisher()
	}
	auditService, err := audit.NewService(auditPublisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(
		sessionRepo,
		orders.NewRepository(dbClient.DB()),
		auditService,
		logg,
		drawerMetrics,
		cfg.Reconcile.Threshold(),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, registry, dbClient, redisClient, pubsubPinger, sessionService, reconcileService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
