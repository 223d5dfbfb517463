package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/verityux/verity/pkg/api"
	"github.com/verityux/verity/pkg/artifacts"
	"github.com/verityux/verity/pkg/auth"
	"github.com/verityux/verity/pkg/config"
	"github.com/verityux/verity/pkg/identity"
	"github.com/verityux/verity/pkg/interviews"
	"github.com/verityux/verity/pkg/middleware"
	"github.com/verityux/verity/pkg/objectstore"
	"github.com/verityux/verity/pkg/observability"
	"github.com/verityux/verity/pkg/orgs"
	"github.com/verityux/verity/pkg/storage/postgres"
	"github.com/verityux/verity/pkg/studies"
	"github.com/verityux/verity/pkg/textgen"
)

var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(observability.ParseLevel(cfg.Observability.LogLevel), os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("verity exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	defer func() {
		if err := shutdown.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("shutdown completed with errors")
		}
	}()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	shutdown.Register("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	otelMetrics, err := observability.NewOTelMetrics()
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry instruments: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	db, err := postgres.Open(ctx, postgres.ConnectionConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	shutdown.Register("database", func(context.Context) error { return db.Close() })

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("database schema is up to date")
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}
	admin, err := identity.NewFirebaseAdmin(ctx, identity.FirebaseConfig{
		ProjectID:    cfg.Identity.ProjectID,
		EmulatorMode: cfg.EmulatorMode(),
	})
	if err != nil {
		return err
	}
	idp := identity.NewProvider(verifier, admin)

	objects, err := objectstore.Open(ctx, objectstore.Config{
		Endpoint:     cfg.ObjectStore.Endpoint,
		Region:       cfg.ObjectStore.Region,
		Bucket:       cfg.ObjectStore.Bucket,
		AccessKey:    cfg.ObjectStore.AccessKey,
		SecretKey:    cfg.ObjectStore.SecretKey,
		UsePathStyle: cfg.ObjectStore.UsePathStyle,
	}, otelMetrics)
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		shutdown.Register("redis", func(context.Context) error { return redisClient.Close() })
	}

	health := observability.NewHealthChecker(db, redisClient)
	health.AddCheck("object_store", objects.HealthCheck)

	limiter, err := newLimiter(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}

	orgStore := orgs.NewPostgresStore(db)
	studyStore := studies.NewPostgresStore(db)

	engine := interviews.NewEngine(interviews.NewPostgresStore(db), studyStore, interviews.Config{
		FrontendBaseURL: cfg.Links.FrontendBaseURL,
		APIBaseURL:      cfg.Links.APIBaseURL,
		ReusableLinkTTL: cfg.Links.ReusableLinkTTL,
		DefaultSource:   cfg.Links.DefaultSource,
	}, metrics)

	server := api.NewServer(api.Config{
		ServiceName:    cfg.Observability.OTelServiceName,
		Version:        version,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, api.Dependencies{
		Tokens: auth.NewTenantResolver(idp, auth.ResolverConfig{
			CacheSize: cfg.Identity.TokenCacheSize,
			CacheTTL:  cfg.Identity.TokenCacheTTL,
		}, metrics),
		OrgResolver: orgs.NewContextResolver(orgStore),
		StudyLookup: studyStore,
		Orgs:        orgs.NewService(orgStore, idp),
		Studies:     studies.NewService(studyStore, textgen.NewTemplateGenerator()),
		Interviews:  engine,
		Artifacts: artifacts.NewService(artifacts.NewPostgresStore(db), objects, artifacts.Config{
			Bucket:     cfg.ObjectStore.Bucket,
			PresignTTL: cfg.ObjectStore.PresignTTL,
		}, metrics),
		Limiter: limiter,
		Metrics: metrics,
		Logger:  logger,
		DBPing:  health.PingDatabase,
	})

	scheduler, err := newScheduler(ctx, cfg.Observability.GaugeRefreshSpec, engine, db, metrics, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	shutdown.Register("scheduler", func(ctx context.Context) error {
		select {
		case <-scheduler.Stop().Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz/live", health.Liveness)
	healthMux.HandleFunc("/healthz/ready", health.Readiness)
	healthMux.Handle("/metrics", observability.MetricsHandler(registry))
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown.Register("api server", apiServer.Shutdown)
	shutdown.Register("health server", healthServer.Shutdown)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		return serve(apiServer)
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		return serve(healthServer)
	})

	if path := os.Getenv("VERITY_CONFIG_FILE"); path != "" {
		watcher, err := config.NewWatcher(path, logger, config.ApplyLogLevel(logger))
		if err != nil {
			logger.WithError(err).Warn("config hot reload disabled")
		} else {
			g.Go(func() error { return watcher.Run(gctx) })
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s failed: %w", srv.Addr, err)
	}
	return nil
}

func newVerifier(ctx context.Context, cfg *config.Config) (identity.Verifier, error) {
	if cfg.EmulatorMode() {
		return identity.NewEmulatorVerifier(cfg.Identity.ProjectID, time.Now), nil
	}
	return identity.NewOIDCVerifier(ctx, cfg.Identity.ProjectID)
}

// newLimiter prefers the shared redis counter so limits hold across replicas
func newLimiter(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *observability.Logger) (middleware.Limiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}

	trusted, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		return nil, err
	}

	rlCfg := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerMinute,
		WindowDuration:    time.Minute,
		BurstSize:         cfg.RateLimit.Burst,
		TrustedProxies:    trusted,
	}

	if redisClient != nil {
		logger.Info("using redis rate limiter")
		return middleware.NewDistributedRateLimiter(redisClient, rlCfg, "verity:ratelimit"), nil
	}

	rl := middleware.NewRateLimiter(rlCfg)
	rl.StartCleanup(ctx)
	return rl, nil
}

func newScheduler(ctx context.Context, spec string, engine *interviews.Engine, db *sql.DB, metrics *observability.Metrics, logger *observability.Logger) (*cron.Cron, error) {
	c := cron.New()

	refresh := func() {
		defer observability.RecoverPanic(logger, "interview gauge refresh")
		if err := engine.RefreshStatusGauges(ctx); err != nil {
			logger.WithError(err).Warn("failed to refresh interview gauges")
		}
		metrics.UpdateDBStats(db.Stats())
	}

	if _, err := c.AddFunc(spec, refresh); err != nil {
		return nil, fmt.Errorf("invalid gauge refresh schedule %q: %w", spec, err)
	}

	// Populate gauges before the first tick
	refresh()

	return c, nil
}
