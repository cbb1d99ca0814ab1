// Package main is the entry point for the distributor service.
// The service validates multi-wallet, multi-strategy fund allocations, builds
// the contract arguments for a distribution, stores reusable configs and runs
// recurring distributions on a schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/distributor/internal/config"
	"github.com/aristath/distributor/internal/di"
	"github.com/aristath/distributor/internal/server"
	"github.com/aristath/distributor/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Str("remainder_policy", cfg.RemainderPolicy).
		Bool("backups", cfg.Backup.Enabled()).
		Msg("Starting distributor")

	container, _, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Register saved schedules before the cron loop starts
	if container.ScheduleSync != nil {
		active, err := container.ScheduleSync.SyncAll(context.Background())
		if err != nil {
			log.Error().Err(err).Msg("Failed to register saved schedules")
		} else {
			log.Info().Int("active", active).Msg("Saved schedules registered")
		}
	}
	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
