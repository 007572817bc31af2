package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	appamqp "obras/internal/amqp"
	"obras/internal/backend"
	"obras/internal/config"
	"obras/internal/export/sheets"
	applog "obras/internal/log"
	"obras/internal/ports"
	"obras/internal/services"
	"obras/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting obras-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}
	store := result.Backend

	// Google Sheets export is optional: without a spreadsheet the worker
	// still drains the queue, it just logs instead of exporting.
	var exporter ports.ReportExporter
	if cfg.SheetsExportEnabled() {
		exporter, err = sheets.New(ctx, sheets.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	reports := services.NewReportService(store, store, store)
	exportWorker := worker.NewExportWorker(reports, exporter, cfg.ExportInterval)

	// Consume in a reconnect loop: a broker restart drops the channel,
	// so the client is rebuilt with backoff until the context ends.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for attempt := 0; ; attempt++ {
			err := consume(gctx, cfg, exportWorker)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			delay := appamqp.ExponentialBackoff(attempt)
			logger.Warn("Event consumption interrupted, reconnecting",
				"error", err, "attempt", attempt+1, "delay", delay)
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-time.After(delay):
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// consume dials the broker, drains budget and progress events through
// the export worker and returns when the connection drops or the
// context ends.
func consume(ctx context.Context, cfg *config.Config, exportWorker *worker.ExportWorker) error {
	client, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	return client.ConsumeEvents(ctx, exportWorker)
}
