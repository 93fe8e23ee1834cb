package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shoshosho1210/coinrader/pkg/analytics"
	"github.com/shoshosho1210/coinrader/pkg/api"
	"github.com/shoshosho1210/coinrader/pkg/config"
	"github.com/shoshosho1210/coinrader/pkg/enrich"
	"github.com/shoshosho1210/coinrader/pkg/ga"
	"github.com/shoshosho1210/coinrader/pkg/middleware"
	"github.com/shoshosho1210/coinrader/pkg/observability"
	"github.com/shoshosho1210/coinrader/pkg/storage"
	"github.com/shoshosho1210/coinrader/pkg/track"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.WithFields(map[string]interface{}{
		"version": observability.Version,
		"port":    cfg.Server.Port,
	}).Info("Starting coinrader collector")

	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	ctx := context.Background()

	// OpenTelemetry (optional)
	var otelProviders *observability.OTelProviders
	var otelMetrics *observability.OTelMetrics
	if cfg.Observability.OTelEnabled {
		otelProviders, err = observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, logger)
		if err != nil {
			logger.WithError(err).Error("Failed to initialize OpenTelemetry, continuing without it")
		} else {
			otelMetrics, err = observability.NewOTelMetrics()
			if err != nil {
				logger.WithError(err).Error("Failed to create OTel instruments")
				otelMetrics = nil
			}
		}
	}

	// Database (click events and analytics)
	connManager, err := storage.NewConnectionManager(cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	connManager.StartHealthCheckRoutine(ctx, 30*time.Second)
	if err := analytics.EnsureSchema(ctx, connManager.Primary(), connManager.Driver()); err != nil {
		logger.WithError(err).Error("Failed to ensure click schema")
		os.Exit(1)
	}

	// Redis (distributed rate limiting, health checks)
	redisClient, err := storage.NewRedisClient(cfg.Storage)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, using in-process rate limits")
		redisClient = nil
	}

	// Click enrichment (GeoIP is optional)
	enricher, err := enrich.New(cfg.Enrich.GeoIPDB)
	if err != nil {
		logger.WithError(err).Warn("GeoIP database unavailable, country enrichment disabled")
	}

	// GA4 forwarding
	gaClient := ga.NewClient(cfg.GA, logger, metrics)
	if gaClient != nil {
		gaClient.Start(ctx)
		logger.Info("GA4 forwarding enabled")
	} else {
		logger.Warn("GA4 forwarding disabled, clicks will be classified and stored only")
	}

	// Classification rules, hot-reloaded when a rules file is configured
	rules := track.DefaultRules()
	if cfg.Track.RulesFile != "" {
		rules, err = track.LoadRules(cfg.Track.RulesFile)
		if err != nil {
			logger.WithError(err).Error("Failed to load rules file")
			os.Exit(1)
		}
	}
	if cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout < 2*rules.Timeout() {
		logger.WithFields(map[string]interface{}{
			"write_timeout":      cfg.Server.WriteTimeout.String(),
			"completion_timeout": rules.Timeout().String(),
		}).Error("Write timeout too small to cover held navigation responses")
		os.Exit(1)
	}
	classifier := track.NewClassifier(rules, ga.DialReporter(gaClient))

	watcherCtx, stopWatcher := context.WithCancel(ctx)
	if cfg.Track.RulesFile != "" {
		watcher, err := track.NewRulesWatcher(cfg.Track.RulesFile, classifier, func(err error) {
			logger.WithError(err).Error("Rules reload failed, keeping previous rules")
		})
		if err != nil {
			logger.WithError(err).Warn("Rules file watching unavailable")
		} else {
			go watcher.Run(watcherCtx)
			defer watcher.Close()
			logger.WithField("file", cfg.Track.RulesFile).Info("Watching rules file for changes")
		}
	}
	defer stopWatcher()

	// API server
	apiDeps := api.Deps{
		Classifier:  classifier,
		Tracker:     analytics.NewEventTracker(connManager.Primary()),
		Enricher:    enricher,
		Stats:       analytics.NewService(connManager.Replica()),
		Logger:      logger,
		Metrics:     metrics,
		OTelMetrics: otelMetrics,
	}
	if redisClient != nil {
		apiDeps.Redis = redisClient.GetClient()
	}
	server := api.NewServer(apiDeps, api.Config{
		StatsToken:   cfg.API.StatsToken,
		CORSOrigins:  cfg.API.CORSOrigins,
		MaxBodyBytes: cfg.API.MaxBodyBytes,
		RateLimit: &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.API.RateLimitPerMinute,
			WindowDuration:    time.Minute,
			BurstSize:         cfg.API.RateLimitBurst,
		},
		DistributedRateLimit: cfg.API.RateLimitDistributed,
	})

	var handler http.Handler = server
	if otelProviders != nil {
		handler = otelhttp.NewHandler(handler, "collector")
	}
	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(connManager.Primary(), apiDeps.Redis))
	observability.RegisterMetricsEndpoint(healthMux, registry)
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		logger.WithField("port", cfg.Server.HealthPort).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	// Reverse registration order: the health server goes down last so
	// probes keep answering while the rest drains.
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return connManager.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if enricher != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return enricher.Close()
		})
	}
	if gaClient != nil {
		// Drain queued beacons before the stores close
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			gaClient.Stop(5 * time.Second)
			return nil
		})
	}
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("Collector listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}
