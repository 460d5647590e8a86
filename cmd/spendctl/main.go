package main

import (
	"context"
	"os"

	"spendtrack/internal/amqp"
	"spendtrack/internal/cli"
	"spendtrack/internal/log"
	"spendtrack/internal/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()

	boot := log.New(log.Config{Output: os.Stderr, Component: log.ComponentCLI})
	cfg, err := cli.LoadConfig()
	if err != nil {
		boot.Error("Configuration validation failed", log.FieldError, err)
		return 1
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Output:    os.Stderr,
		Component: log.ComponentCLI,
	})

	app := &cli.App{
		Open: func(ctx context.Context) (*storage.Repository, error) {
			return cli.OpenRepository(ctx, cfg)
		},
		Logger:    logger,
		CacheSize: cfg.UserCacheSize,
		CacheTTL:  cfg.UserCacheTTL,
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, imports will not be announced", log.FieldError, err)
		} else {
			defer client.Close()
			app.Publisher = client
		}
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := cli.NewRootCommand(app).ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
