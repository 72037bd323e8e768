// Package main is the entry point for the surgeon match gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/surgeonmatch/gateway/internal/auth"
	"github.com/surgeonmatch/gateway/internal/availability"
	"github.com/surgeonmatch/gateway/internal/config"
	"github.com/surgeonmatch/gateway/internal/directory"
	"github.com/surgeonmatch/gateway/internal/observability"
	"github.com/surgeonmatch/gateway/internal/ratelimit"
	"github.com/surgeonmatch/gateway/internal/server"
	"github.com/surgeonmatch/gateway/internal/server/middleware"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

const shutdownTimeout = 15 * time.Second

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(flags.configPath, logger)

	run(cfg, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("GATEWAY_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", "json"),
		"Log format (json, console)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("surgeonmatch gateway version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadConfig loads and validates the configuration.
func loadConfig(configPath string, logger observability.Logger) *config.GatewayConfig {
	logger.Info("starting surgeonmatch gateway",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}
	return cfg
}

// newRegistry builds the Prometheus registry with all gateway metrics.
func newRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	authMetrics := auth.GetMetrics()
	authMetrics.MustRegister(registry)
	authMetrics.Init()

	limitMetrics := ratelimit.GetMetrics()
	limitMetrics.MustRegister(registry)
	limitMetrics.Init()

	availMetrics := availability.GetMetrics()
	availMetrics.MustRegister(registry)
	availMetrics.Init()

	middleware.GetHTTPMetrics().MustRegister(registry)

	return registry
}

// run wires the gateway components and serves until interrupted.
func run(cfg *config.GatewayConfig, logger observability.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Key store with live file reload when a key file is configured.
	var keyStore auth.Store
	if cfg.Auth.KeyFile != "" {
		fileStore, err := auth.NewFileStore(cfg.Auth.KeyFile,
			auth.WithFileStoreLogger(logger))
		if err != nil {
			logger.Fatal("failed to load key file", observability.Error(err))
		}
		if err := fileStore.Start(ctx); err != nil {
			logger.Fatal("failed to watch key file", observability.Error(err))
		}
		defer fileStore.Stop()
		keyStore = fileStore
	} else {
		keyStore = auth.NewMemoryStoreFromConfig(cfg.Auth.Keys)
	}

	hasher, err := auth.NewHasher(cfg.Auth.EffectiveHashAlgorithm())
	if err != nil {
		logger.Fatal("invalid hash algorithm", observability.Error(err))
	}
	authenticator := auth.NewAuthenticator(keyStore, hasher,
		auth.WithLogger(logger))

	limiter, closeLimiter, err := ratelimit.New(ctx, cfg.RateLimit, cfg.RedisURL(), logger)
	if err != nil {
		logger.Fatal("failed to create rate limiter", observability.Error(err))
	}
	defer func() { _ = closeLimiter() }()

	surgeonStore, err := directory.NewMemoryStoreFromFile(cfg.Directory.File)
	if err != nil {
		logger.Fatal("failed to load surgeon directory", observability.Error(err))
	}
	directorySvc := directory.NewService(surgeonStore,
		directory.WithServiceLogger(logger))

	availStore, closeAvailStore, err := newAvailabilityStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to create availability store", observability.Error(err))
	}
	defer func() { _ = closeAvailStore() }()

	scheduler := availability.NewHTTPScheduler(
		cfg.Upstream.BaseURL,
		cfg.Upstream.Timeout.Duration(),
		cfg.Upstream.BreakerThreshold,
		cfg.Upstream.BreakerCooldown.Duration(),
		availability.WithSchedulerLogger(logger),
	)

	cache := availability.NewCache(availStore, scheduler,
		availability.WithCacheLogger(logger),
		availability.WithCacheMetrics(availability.GetMetrics()),
		availability.WithTTL(cfg.Cache.TTL.Duration()),
		availability.WithRetries(cfg.Upstream.Retries, cfg.Upstream.RetryBackoff.Duration()),
	)

	srv := server.New(cfg.Server, server.Deps{
		Authenticator: authenticator,
		Limiter:       limiter,
		WindowSeconds: int(cfg.RateLimit.Window.Duration().Seconds()),
		Handlers:      server.NewHandlers(directorySvc, cache),
		Registry:      newRegistry(),
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", observability.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", observability.Error(err))
	}
}

// newAvailabilityStore selects the availability cache backend.
func newAvailabilityStore(ctx context.Context, cfg *config.GatewayConfig, logger observability.Logger) (availability.Store, func() error, error) {
	if cfg.Cache.Store == config.StoreRedis {
		s, err := availability.NewRedisStoreFromURL(ctx, cfg.RedisURL())
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis availability store")
		return s, s.Close, nil
	}

	s := availability.NewMemoryStore()
	return s, s.Close, nil
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
