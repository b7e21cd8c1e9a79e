package main

import (
	"context"
	"errors"
	"os"
	"time"

	"asrama/internal/amqp"
	"asrama/internal/cli"
	"asrama/internal/config"
	applog "asrama/internal/log"
	"asrama/internal/restapi"
	gsheet "asrama/internal/sheets/google"
	"asrama/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentWorker)
	logger.Info("Starting asrama-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer cli.Close(logger, res)

	sheetsClient, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SummarySheet:    cfg.GoogleSheetName,
		MinutesSheet:    cfg.GoogleMinutesSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(res.Backend, sheetsClient, logger)
	scheduler := worker.NewScheduler(exportWorker, cfg.ExportInterval, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Error("Scheduler shutdown error", applog.FieldError, err)
		}
	})

	// The rest backend only serves admin data to authenticated callers.
	runCtx := ctx
	if cfg.APIToken != "" {
		runCtx = restapi.WithToken(ctx, cfg.APIToken)
	}

	if err := scheduler.Start(runCtx); err != nil {
		logger.Error("Failed to start export scheduler", applog.FieldError, err)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeWithReconnect(runCtx, exportWorker.Handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
	}()

	logger.Info("Worker running",
		applog.FieldBackend, cfg.DataBackend,
		"export_interval", cfg.ExportInterval.String(),
		"queue", cfg.AMQPQueue)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
