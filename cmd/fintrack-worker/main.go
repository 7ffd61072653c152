package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
	"fintrack/internal/worker"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Keep ledger rows in memory instead of writing to Google Sheets")
	flag.Parse()

	cli.LoadEnvFile()

	validate := (*config.Config).ValidateWorker
	if *dryRun {
		validate = func(c *config.Config) error {
			if c.AMQPURL == "" {
				return errors.New("AMQP_URL is required for the worker")
			}
			return nil
		}
	}
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)
	cfg := cli.LoadAndValidateConfig(boot, validate)
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout)

	logger.Info("Starting fintrack-worker", "dry_run", *dryRun)

	var ledger sheets.LedgerWriter
	if *dryRun {
		ledger = memory.New()
		logger.Info("Ledger kept in memory")
	} else {
		initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		sheet, err := gsheet.New(initCtx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err == nil {
			err = sheet.EnsureHeader(initCtx)
		}
		cancel()
		if err != nil {
			logger.Error("Failed to initialize Google Sheets ledger", log.FieldError, err)
			os.Exit(1)
		}
		ledger = sheet
		logger.Info("Google Sheets ledger ready", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	w := worker.NewLedgerWorker(ledger, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", log.FieldError, err)
		}
	})

	caches := cache.NewManager(logger)
	caches.Register(w.SeenCache())
	go caches.Run(ctx, 15*time.Minute)

	if err := client.ConsumeRecordEvents(ctx, w.HandleRecordEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		_ = client.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
