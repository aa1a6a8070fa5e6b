package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/mindgrove-hq/mindgrove/pkg/aiprovider"
	"github.com/mindgrove-hq/mindgrove/pkg/airouting"
	"github.com/mindgrove-hq/mindgrove/pkg/api"
	"github.com/mindgrove-hq/mindgrove/pkg/audit"
	"github.com/mindgrove-hq/mindgrove/pkg/config"
	"github.com/mindgrove-hq/mindgrove/pkg/observability"
	"github.com/mindgrove-hq/mindgrove/pkg/permissions"
	"github.com/mindgrove-hq/mindgrove/pkg/sharing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting mindgrove api")

	ctx := context.Background()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		logger.WithError(err).Error("failed to ping database")
		os.Exit(1)
	}

	if err := runMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("migrations failed")
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Error("invalid redis URL")
			os.Exit(1)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		opts.MaxRetries = cfg.Redis.MaxRetries
		opts.PoolSize = cfg.Redis.PoolSize
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	var otelProviders *observability.OTelProviders
	if cfg.Observability.OTelEnabled {
		otelProviders, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("otel init failed, continuing without tracing")
		}
	}

	// Permission grants, shared by every adapter. With Redis present the
	// resolver layer caches resolved flags.
	grantStore := permissions.NewStore(db)
	var grants permissions.GrantStore = grantStore
	if redisClient != nil {
		grants = permissions.NewCachedResolver(grantStore, redisClient, 5*time.Minute)
	}

	projections := sharing.NewProjectionStore(db)
	sharingRegistry := sharing.NewRegistry(
		sharing.NewTrackerAdapter(db, grants),
		sharing.NewCalendarAdapter(db, grants, projections),
		sharing.NewTripAdapter(db, grants, projections),
		sharing.NewGuardrailsAdapter(db, grants),
	)

	features := airouting.NewFeatureRegistry()
	if cfg.AI.FeatureOverridePath != "" {
		if err := features.LoadOverrides(cfg.AI.FeatureOverridePath); err != nil {
			logger.WithError(err).Error("failed to load feature overrides")
			os.Exit(1)
		}
		stopWatch, err := features.Watch(cfg.AI.FeatureOverridePath, logger)
		if err != nil {
			logger.WithError(err).Warn("feature override watcher unavailable")
		} else {
			defer stopWatch()
		}
	}

	routingStore := airouting.NewStore(db, features)
	resolver, err := airouting.NewResolver(routingStore, logger, cfg.AI.ResolutionCacheSize)
	if err != nil {
		logger.WithError(err).Error("failed to create resolver")
		os.Exit(1)
	}

	providerLog := logrus.New()
	providerLog.SetFormatter(&logrus.JSONFormatter{})
	dispatcher := aiprovider.NewDispatcher(providerLog)
	dispatcher.Register(aiprovider.NewAnthropicAdapter(aiprovider.AnthropicConfig{Timeout: cfg.AI.ProviderTimeout}, providerLog))
	dispatcher.Register(aiprovider.NewOpenAIAdapter(aiprovider.OpenAIConfig{Timeout: cfg.AI.ProviderTimeout}, providerLog))
	dispatcher.Register(aiprovider.NewOllamaAdapter(aiprovider.OllamaConfig{Timeout: cfg.AI.ProviderTimeout}, providerLog))

	auditLogger := audit.NewDBLogger(db, logger)

	server := api.NewServer(api.Deps{
		Config:          cfg,
		Logger:          logger,
		DB:              db,
		Redis:           redisClient,
		SharingRegistry: sharingRegistry,
		RoutingStore:    routingStore,
		Resolver:        resolver,
		Invoker:         dispatcher,
		AuditLogger:     auditLogger,
	})

	healthSrv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: server.HealthHandler(),
	}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	httpSrv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", httpSrv.Addr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	sm := observability.NewShutdownManager(logger, httpSrv, cfg.Server.ShutdownTimeout)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthSrv.Shutdown(ctx)
	})
	if otelProviders != nil {
		sm.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}
	if err := sm.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	if err := permissions.RunMigrations(ctx, db); err != nil {
		return err
	}
	if err := sharing.RunMigrations(ctx, db); err != nil {
		return err
	}
	if err := airouting.RunMigrations(ctx, db); err != nil {
		return err
	}
	return audit.RunMigrations(ctx, db)
}
