// Package cli provides common CLI initialization utilities shared by
// cmd/rateio and cmd/rateio-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"rateio/internal/config"
	applog "rateio/internal/log"
)

const sentryFlushTimeout = 2 * time.Second

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	level, err := applog.ParseLevel(cfg.LogLevel)
	logger := applog.New(applog.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	slog.SetDefault(logger.Logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", applog.FieldError, err)
	}
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}

// InitSentry enables error reporting when dsn is set. The returned flush
// must run before exit.
func InitSentry(logger *applog.Logger, dsn, release string) (flush func(), err error) {
	if dsn == "" {
		logger.Debug("Sentry disabled, no DSN configured")
		return func() {}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: true,
	}); err != nil {
		return func() {}, fmt.Errorf("init sentry: %w", err)
	}
	logger.Info("Sentry error reporting enabled", "release", release)
	return func() { sentry.Flush(sentryFlushTimeout) }, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. Once
// it fires, cleanup runs with a context bounded by timeout; the returned
// channel closes when cleanup has finished.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-ctx.Done()
		stop()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
