// Package main wires together the email lookup service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/email-lookup/internal/api"
	"github.com/JakeFAU/email-lookup/internal/cache"
	"github.com/JakeFAU/email-lookup/internal/clock/system"
	"github.com/JakeFAU/email-lookup/internal/config"
	"github.com/JakeFAU/email-lookup/internal/fetch"
	"github.com/JakeFAU/email-lookup/internal/logging"
	"github.com/JakeFAU/email-lookup/internal/lookup"
	"github.com/JakeFAU/email-lookup/internal/policy/ratelimit"
	"github.com/JakeFAU/email-lookup/internal/provider"
	memorystorage "github.com/JakeFAU/email-lookup/internal/storage/memory"
	"github.com/JakeFAU/email-lookup/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	clock := system.New()

	// Durable record store: Postgres when configured, in-memory for dev.
	var records lookup.RecordStore
	if cfg.DB.DSN != "" {
		pg, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: int32(cfg.DB.MaxOpenConns),
			MinConns: int32(cfg.DB.MinOpenConns),
		})
		if err != nil {
			return fmt.Errorf("init record store: %w", err)
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("init record store: %w", err)
		}
		records = pg
		logger.Info("using postgres record store")
	} else {
		records = memorystorage.NewRecordStore(clock)
		logger.Warn("db.dsn not set, using in-memory record store; records will not survive restarts")
	}

	// Cache and rate limiter share the Redis connection when one is configured.
	var (
		lookupCache lookup.Cache
		limiter     ratelimit.Limiter
	)
	limitCfg := ratelimit.Config{Limit: cfg.RateLimit.PerMinute, Window: time.Minute}
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedis(cfg.Redis.URL, logger)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		defer func() {
			_ = rc.Close()
		}()
		lookupCache = rc
		limiter = ratelimit.NewRedisLimiter(rc.Client(), limitCfg)
		logger.Info("using redis cache and rate limiter")
	} else {
		lookupCache = cache.NewMemory(clock)
		limiter = ratelimit.NewSlidingWindow(limitCfg, clock)
		logger.Info("using in-process cache and rate limiter")
	}

	client := fetch.NewCollyClient(fetch.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
		HostRPS:   cfg.HTTP.HostRPS,
		Retry:     fetch.NewRetryPolicy(cfg.HTTP.MaxAttempts, cfg.BackoffInitial(), cfg.BackoffMax()),
	})

	providers, err := provider.Build(cfg.Providers.Order, provider.Config{
		GitHubAPIBase:    cfg.Providers.GitHub.APIBase,
		GitHubToken:      cfg.Providers.GitHub.Token,
		HuggingFaceBase:  cfg.Providers.HuggingFace.Base,
		HuggingFaceToken: cfg.Providers.HuggingFace.Token,
	}, client, logger)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	resolver := lookup.NewResolver(lookupCache, records, providers, cfg.CacheTTL(), logger)
	server := api.NewServer(resolver, records, limiter, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
