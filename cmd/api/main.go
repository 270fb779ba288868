package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/davidleathers/auth-risk-engine/internal/api/rest"
	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/config"
	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/reputation"
	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/telemetry"
	"github.com/davidleathers/auth-risk-engine/internal/metrics"
	"github.com/davidleathers/auth-risk-engine/internal/service/risk"
)

func main() {
	var configPath = flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    "auth-risk-engine",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  30 * time.Second,
		BatchTimeout:   5 * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down telemetry", "error", err)
		}
	}()

	registry, err := metrics.NewRegistry("auth-risk-engine")
	if err != nil {
		log.Fatalf("Failed to create metrics registry: %v", err)
	}

	sources := []reputation.Source{
		reputation.NewStaticSource(
			cfg.Risk.DenyListIPs,
			cfg.Risk.AnonymizerIPs,
			cfg.Risk.HighRiskCountries,
		),
	}
	if cfg.Redis.Enabled {
		zapLogger, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("Failed to create zap logger: %v", err)
		}
		defer zapLogger.Sync()

		redisSource, err := reputation.NewRedisSource(&cfg.Redis, zapLogger)
		if err != nil {
			log.Fatalf("Failed to connect reputation source: %v", err)
		}
		defer redisSource.Close()
		sources = append(sources, redisSource)
	}

	monitor := risk.NewMonitor(cfg.Risk, logger, registry, sources...)
	if err := monitor.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize risk monitor: %v", err)
	}

	server := rest.NewServer(cfg.Server, monitor, logger, cfg.Version)
	if err := server.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := monitor.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down risk monitor", "error", err)
	}
}
