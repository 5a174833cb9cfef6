package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"logdash/internal/amqp"
	"logdash/internal/backend"
	"logdash/internal/cli"
	apphttp "logdash/internal/http"
	applog "logdash/internal/log"
	"logdash/internal/metrics"
	"logdash/internal/services"
	"logdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendConfig)
	if err != nil {
		logger.Error("Failed to create data backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	collector := metrics.NewCollector("logdash")

	refresher := services.NewRefresher(result.Source, services.RefresherConfig{
		Interval:   cfg.RefreshInterval,
		YearToDate: cfg.YearToDate,
	}, logger, collector)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:              ":" + cfg.Port,
		Provider:          refresher,
		Metrics:           collector,
		Logger:            logger,
		RefreshRateLimit:  cfg.RefreshRateLimit,
		TrustedProxies:    cfg.TrustedProxies,
		ArtifactCacheSize: cfg.ArtifactCacheSize,
		ArtifactCacheTTL:  cfg.ArtifactCacheTTL,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient = amqp.NewConsumerClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := refresher.Stop(shutdownCtx); err != nil {
			logger.Error("Refresher shutdown error", applog.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup error", applog.FieldError, err)
			}
		}
	})

	if err := refresher.Start(ctx); err != nil {
		logger.Error("Failed to start refresher", applog.FieldError, err)
		os.Exit(1)
	}

	if amqpClient != nil {
		refreshWorker := worker.NewRefreshWorker(amqpClient, refresher, collector, logger)
		go func() {
			if err := refreshWorker.Run(ctx); err != nil {
				logger.Error("Refresh request consumer stopped", applog.FieldError, err)
			}
		}()
	}

	logger.Info("Starting logdash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"refresh_interval", cfg.RefreshInterval,
		"amqp", amqpClient != nil)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
