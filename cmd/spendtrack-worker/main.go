package main

import (
	"context"
	"errors"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/cache"
	"spendtrack/internal/cli"
	"spendtrack/internal/config"
	"spendtrack/internal/log"
	"spendtrack/internal/sheets"
	gsheet "spendtrack/internal/sheets/google"
	"spendtrack/internal/sheets/memory"
	"spendtrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	boot := log.New(log.DefaultConfig())
	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(boot, "Configuration validation failed", err)
	}
	if cfg.AMQPURL == "" {
		cli.Fatal(boot, "Configuration validation failed", errors.New("AMQP_URL is required for the export worker"))
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting spendtrack-worker", "export_backend", cfg.ExportBackend)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	repo, err := cli.OpenRepository(ctx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to open database", err)
	}
	defer repo.Close()

	var exporter sheets.TransactionExporter
	switch cfg.ExportBackend {
	case config.ExportSheets:
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
		}, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		}
		exporter = client
	default:
		exporter = memory.New()
		logger.Warn("Exporting to memory, rows are lost on restart")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer consumer.Close()

	exported := cache.NewLRUCache[string](1000, 24*time.Hour)
	caches := cache.NewManager(logger)
	caches.Register(exported)
	caches.StartCleanup(time.Hour)
	defer caches.Stop()

	w := worker.NewExportWorker(repo, exporter, exported, logger)
	if err := w.Run(ctx, consumer); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
	}
	logger.Info("Worker stopped")
}
