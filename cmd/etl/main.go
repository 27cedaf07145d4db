package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/boundary"
	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/chart"
	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/console"
	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/nyc-collision-etl/internal/adapter/kafka"
	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/render"
	"github.com/couchcryptid/nyc-collision-etl/internal/adapter/workbook"
	"github.com/couchcryptid/nyc-collision-etl/internal/config"
	"github.com/couchcryptid/nyc-collision-etl/internal/domain"
	"github.com/couchcryptid/nyc-collision-etl/internal/observability"
	"github.com/couchcryptid/nyc-collision-etl/internal/pipeline"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// A missing .env is normal; variables may come from the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	runID := uuid.NewString()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	err = run(ctx, cfg, runID, metrics, logger)

	if cfg.PushgatewayURL != "" {
		if pushErr := observability.Push(context.Background(), cfg.PushgatewayURL, prometheus.DefaultGatherer); pushErr != nil {
			logger.Error("metrics push failed", "run_id", runID, "error", pushErr)
			err = errors.Join(err, pushErr)
		}
	}

	if err != nil {
		logger.Error("run failed", "run_id", runID, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, runID string, metrics *observability.Metrics, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}

	zips, err := boundary.Load(cfg.BoundaryPath)
	if err != nil {
		return err
	}
	logger.Info("boundary loaded", "path", cfg.BoundaryPath, "zones", zips.Len())

	// Select the zip backfill resolver (ZIP_BACKFILL).
	var resolver domain.ZipResolver
	var source domain.ZipSource
	switch cfg.ZipBackfill {
	case config.BackfillBoundary:
		resolver, source = zips, domain.ZipFromBoundary
	case config.BackfillMapbox:
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.MapboxRateLimit, metrics, logger)
		resolver, source = mapbox.NewCachedResolver(client, cfg.MapboxCacheSize, metrics), domain.ZipFromMapbox
		logger.Info("mapbox zip backfill enabled",
			"cache_size", cfg.MapboxCacheSize,
			"timeout", cfg.MapboxTimeout,
			"rate_limit", cfg.MapboxRateLimit,
		)
	default:
		logger.Info("zip backfill disabled")
	}

	loaders := []pipeline.Loader{
		console.NewPrinter(os.Stdout),
		render.NewMapSink(cfg.OutputDir, zips, metrics, logger),
		chart.NewPieSink(cfg.OutputDir, metrics, logger),
	}
	if cfg.WorkbookEnabled {
		loaders = append(loaders, workbook.NewSink(cfg.OutputDir, metrics, logger))
	}
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loaders = append(loaders, writer)
	}

	p := pipeline.New(
		csvsource.New(cfg, logger),
		pipeline.NewTransformer(resolver, source, metrics, logger),
		loaders,
		domain.AnalyzeOptions{TopZips: cfg.TopZips, TopFactors: cfg.TopFactors},
		logger,
		metrics,
	)

	// Start the status server (STATUS_ADDR) for the duration of the run.
	if cfg.StatusAddr != "" {
		srv := httpadapter.NewServer(cfg.StatusAddr, runID, p, prometheus.DefaultGatherer, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("status server shutdown error", "error", err)
			}
		}()
	}

	_, err = p.Run(ctx, runID)
	return err
}
