package cli

import (
	"context"
	"log/slog"
	"testing"

	"rateio/internal/config"
	applog "rateio/internal/log"
)

func TestInitSentryDisabledWithoutDSN(t *testing.T) {
	flush, err := InitSentry(applog.Discard(), "", "test")
	if err != nil {
		t.Fatalf("InitSentry() error = %v", err)
	}
	flush()
}

func TestInitSentryRejectsMalformedDSN(t *testing.T) {
	if _, err := InitSentry(applog.Discard(), "not a dsn", "test"); err == nil {
		t.Fatal("InitSentry() should fail on a malformed DSN")
	}
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"}, applog.ComponentWorker)
	if logger.Component() != applog.ComponentWorker {
		t.Errorf("Component() = %q, want %q", logger.Component(), applog.ComponentWorker)
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("default logger should have debug enabled")
	}
}
