// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry export, health checks and graceful shutdown for Verity.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("interview_id", id).Info("interview completed")
//
// The level is held in a slog.LevelVar so it can be changed while the
// process is running (see config.Watcher):
//
//	logger.SetLevel(observability.DebugLevel)
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.InterviewsCreatedTotal.WithLabelValues("reusable_link").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	router.HandleFunc("/healthz/ready", checker.Readiness)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "verity-backend",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
