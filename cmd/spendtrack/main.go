package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"spendtrack/internal/amqp"
	"spendtrack/internal/cache"
	"spendtrack/internal/cli"
	apphttp "spendtrack/internal/http"
	"spendtrack/internal/log"
	"spendtrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	boot := log.New(log.DefaultConfig())
	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(boot, "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	repo, err := cli.OpenRepository(ctx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to open database", err)
	}
	defer repo.Close()

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		defer client.Close()
		publisher = client
	} else {
		logger.Info("AMQP disabled, imports will not be announced")
	}

	userCache := cache.NewLRUCache[string](cfg.UserCacheSize, cfg.UserCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(userCache)
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	store := services.NewRepositoryStore(repo)
	importer := services.NewImportService(store, services.NewUserDirectory(store, userCache), publisher, logger)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               net.JoinHostPort("", cfg.Port),
		FrontendURL:        cfg.FrontendURL,
		UploadDir:          cfg.UploadDir,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}, repo, importer, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to create HTTP server", err)
	}
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting spendtrack server",
			"port", cfg.Port,
			"backend", cfg.DataBackend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			cli.Fatal(logger, "Server error", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", log.FieldError, err, log.FieldOperation, log.OpShutdown)
	}
	logger.Info("Server stopped gracefully")
}
