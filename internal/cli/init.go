// Package cli holds the start-up steps shared by the spendtrack binaries and
// the spendctl command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spendtrack/internal/config"
	"spendtrack/internal/log"
	"spendtrack/internal/storage"
)

// LoadEnvFile loads a .env file when present. Production deployments set the
// environment directly, so a missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig reads the environment and validates it.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenRepository connects to the configured database and applies pending
// migrations.
func OpenRepository(ctx context.Context, cfg *config.Config) (*storage.Repository, error) {
	driver, dsn := cfg.Database()
	if driver == storage.DriverSQLite {
		repo, err := storage.NewSQLiteRepository(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite repository at %s: %w", dsn, err)
		}
		return repo, nil
	}

	repo, err := storage.Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}
