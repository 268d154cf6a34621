package main

import (
	"context"
	"errors"
	"os"
	"time"

	"rateio/internal/backend"
	"rateio/internal/cli"
	"rateio/internal/config"
	applog "rateio/internal/log"
	"rateio/internal/services"
	"rateio/internal/sheets"
	gsheet "rateio/internal/sheets/google"
	sheetsmem "rateio/internal/sheets/memory"
	"rateio/internal/worker"
)

var version = "dev"

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting rateio-worker", "version", version)

	flushSentry, err := cli.InitSentry(logger, cfg.SentryDSN, "rateio-worker@"+version)
	if err != nil {
		logger.Error("Failed to initialize Sentry", applog.FieldError, err)
		os.Exit(1)
	}
	defer flushSentry()

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Worker is reading an in-memory store; it will not see writes made by the server process")
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	backendCfg.RequireAMQP = cfg.AMQPURL != ""
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).Create(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}

	exporter, err := newExporter(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		_ = res.Cleanup()
		os.Exit(1)
	}

	// The worker never writes, so it reads storage directly without a cache.
	ledger := services.NewLedgerService(res.Store, services.Options{Logger: logger})
	syncWorker := worker.NewSyncWorker(ledger, exporter, logger, worker.WithParallelism(cfg.ProjectionExportParallel))
	scheduler := worker.NewScheduler(logger, cfg.ProjectionExportJobTimeout)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler did not stop in time", applog.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	// Catch up on anything missed while the worker was down.
	logger.Info("Performing startup ledger export...")
	if err := syncWorker.ExportAllLedgers(ctx); err != nil {
		logger.Error("Startup ledger export failed", applog.FieldError, err)
	}

	if cfg.ProjectionExportSchedule != "" {
		if err := scheduler.Add("projection_export", cfg.ProjectionExportSchedule, syncWorker.ExportAllProjections); err != nil {
			logger.Error("Failed to schedule projection export", applog.FieldError, err)
			os.Exit(1)
		}
		scheduler.Start()
	} else {
		logger.Info("Periodic projection export disabled")
	}

	if res.AMQP != nil {
		go func() {
			err := res.AMQP.ConsumeLedgerChanges(ctx, syncWorker.HandleLedgerChange)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err)
			}
		}()
		logger.Info("Consuming ledger changes", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

func newExporter(cfg *config.Config, logger *applog.Logger) (sheets.Exporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, exports are kept in memory")
		return sheetsmem.New(), nil
	}
	client, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		PeriodsSheet:    cfg.GoogleSheetName,
		ProjectionSheet: cfg.GoogleProjectionSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
