// Command opldockd runs the opldock web daemon: the HTTP API, the bundled
// UI, the startup staging sweep, and the USB hot-plug monitor.
package main

import (
	"context"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"opldock/internal/config"
	"opldock/internal/deps"
	"opldock/internal/devices"
	"opldock/internal/logging"
	"opldock/internal/server"
	"opldock/internal/staging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configPath, fromFile, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "opldockd.log")},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if fromFile {
		logger.Info("configuration loaded", logging.String("path", configPath))
	} else {
		logger.Info("no configuration file found, using defaults",
			logging.String("searched", configPath))
	}

	lock := flock.New(filepath.Join(cfg.Paths.StagingDir, "opldockd.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("acquire daemon lock: %v", err)
	}
	if !locked {
		log.Fatalf("another opldockd instance is already running")
	}
	defer lock.Unlock() //nolint:errcheck

	for _, status := range deps.CheckBinaries(deps.Required()) {
		if status.Available {
			continue
		}
		if status.Optional {
			logger.Debug("optional tool missing",
				logging.String("tool", status.Name),
				logging.String("detail", status.Detail))
			continue
		}
		logger.Warn("required tool missing",
			logging.String("tool", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldErrorHint, "install it with your package manager"),
			logging.String(logging.FieldImpact, status.Description+" unavailable"))
	}

	sweep := staging.CleanStale(cfg.Paths.StagingDir,
		time.Duration(cfg.Staging.StaleAfterHours)*time.Hour, logger)
	if len(sweep.Removed) > 0 {
		logger.Info("staging sweep complete", logging.Int("removed", len(sweep.Removed)))
	}

	monitor := devices.NewMonitor(logger, nil)
	if err := monitor.Start(ctx); err != nil {
		logger.Warn("device monitor failed to start", logging.Error(err))
	}
	defer monitor.Stop()

	srv := server.New(cfg, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info("opldockd shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", logging.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", logging.Error(err))
	}
}
