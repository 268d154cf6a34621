package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"rateio/internal/backend"
	"rateio/internal/cache"
	"rateio/internal/cli"
	apphttp "rateio/internal/http"
	applog "rateio/internal/log"
	"rateio/internal/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	flushSentry, err := cli.InitSentry(logger, cfg.SentryDSN, "rateio@"+version)
	if err != nil {
		logger.Error("Failed to initialize Sentry", applog.FieldError, err)
		os.Exit(1)
	}
	defer flushSentry()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend)).Create(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	balance, err := cfg.BalanceOptions()
	if err != nil {
		logger.Error("Invalid balance strategy", applog.FieldError, err)
		os.Exit(1)
	}

	periodCache := services.NewPeriodCache(cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(periodCache.Cleaners()...)
	cacheManager.StartCleanup(cfg.CacheTTL)

	opts := services.Options{
		Cache:   periodCache,
		Balance: balance,
		Logger:  logger,
	}
	if res.AMQP != nil {
		opts.Publisher = res.AMQP
	}
	ledger := services.NewLedgerService(res.Store, opts)

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:               net.JoinHostPort("", cfg.Port),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, ledger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting rateio server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"split_policy", cfg.BalanceSplitPolicy,
		"entry_filter", cfg.BalanceEntryFilter,
		"amqp_enabled", res.AMQP != nil,
		"version", version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		flushSentry()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
