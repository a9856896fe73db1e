// Pgconsole is the observability daemon for the PostgreSQL console
// monitor. It serves the request-scoped logging pipeline, the runtime
// log-level admin API, and periodic resource sampling.
//
// Configuration is loaded from a YAML file and environment variables.
// See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	pgconsole
//
//	# Start with a config file; level changes in the file apply live
//	pgconsole -config /etc/pgconsole/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/bovinemagnet/pg-console-sub010/internal/config"
	pghttp "github.com/bovinemagnet/pg-console-sub010/internal/http"
	"github.com/bovinemagnet/pg-console-sub010/internal/logging"
	"github.com/bovinemagnet/pg-console-sub010/internal/redact"
	"github.com/bovinemagnet/pg-console-sub010/internal/sampler"
	"github.com/bovinemagnet/pg-console-sub010/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pgconsole\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// run starts the daemon and blocks until context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Build the redaction engine, telemetry, and log dispatcher
//  3. Start the resource sampler
//  4. Watch the config file for live level changes
//  5. Start the HTTP server
//  6. Graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	redactor, err := redact.New(cfg.Redaction)
	if err != nil {
		return fmt.Errorf("failed to build redactor: %w", err)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	logger, err := logging.NewLogger(cfg, redactor, tel.LoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "STARTUP", "starting pgconsole",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("format", cfg.Logging.Format),
		zap.Bool("sampler", cfg.Sampler.Enabled),
	)

	res := sampler.New(cfg.Sampler, logger, nil)
	go res.Run(ctx)

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, cfg, logger.Underlying())
		if err != nil {
			return fmt.Errorf("failed to watch config: %w", err)
		}
		watcher.OnChange(func(next *config.Config) {
			applyLevels(ctx, logger, next)
		})
		watcher.Start()
		defer watcher.Stop()
	}

	server, err := pghttp.NewServer(logger, cfg, nil)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx := context.Background()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// applyLevels re-applies per-category levels from a reloaded config so
// verbosity changes take effect without a restart.
func applyLevels(ctx context.Context, logger *logging.Logger, cfg *config.Config) {
	levels := logger.Levels()
	for category, name := range cfg.Logging.Levels {
		if err := levels.SetLevel(category, name); err != nil {
			logger.Warn(ctx, "CONFIG", "ignoring invalid level from reloaded config",
				zap.String("category", category),
				zap.String("level", name),
				zap.Error(err),
			)
		}
	}
}
