// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/distributor/internal/config"
	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/aristath/distributor/internal/modules/registry"
	"github.com/aristath/distributor/internal/reliability"
	"github.com/aristath/distributor/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices creates all services and stores them in the container
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	// ==========================================
	// Distribution
	// ==========================================

	policy, err := allocation.RemainderPolicyByName(cfg.RemainderPolicy)
	if err != nil {
		return fmt.Errorf("failed to resolve remainder policy: %w", err)
	}

	// Only the dry-run submitter ships; a chain-backed Submitter replaces it here
	if container.Submitter == nil {
		container.Submitter = distribution.NewDryRunSubmitter(log)
	}

	container.DistributionService = distribution.NewService(
		container.Submitter,
		container.RunRepo,
		distribution.Builder{Policy: policy},
		distribution.Defaults{
			Asset:    cfg.DefaultAsset,
			Decimals: cfg.DefaultDecimals,
		},
		log,
	)

	// ==========================================
	// Config registry
	// ==========================================

	container.RegistryClient = registry.NewClient(container.ConfigRepo, cfg.DefaultDecimals, log)
	container.ConfigRunner = registry.NewRunner(container.RegistryClient, container.DistributionService, log)

	// ==========================================
	// Scheduler
	// ==========================================

	container.Scheduler = scheduler.New(log)
	if cfg.SchedulerEnabled {
		container.ScheduleSync = scheduler.NewScheduleSync(
			container.Scheduler,
			container.RegistryClient,
			container.ConfigRunner,
			log,
		)
	} else {
		log.Info().Msg("Scheduler disabled - recurring distributions will not run")
	}

	// ==========================================
	// R2 backups (optional - only if a bucket is configured)
	// ==========================================

	if cfg.Backup.Enabled() {
		r2Client, err := reliability.NewR2Client(context.Background(), reliability.R2Config{
			Endpoint:        cfg.Backup.Endpoint,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
			Region:          cfg.Backup.Region,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize R2 client - R2 backup disabled")
		} else {
			container.R2Client = r2Client
			container.BackupService = reliability.NewR2BackupService(
				r2Client,
				container.DB,
				cfg.DataDir,
				log,
			)
			log.Info().Str("bucket", cfg.Backup.Bucket).Msg("R2 cloud backup services initialized")
		}
	} else {
		log.Debug().Msg("R2 bucket not configured - R2 backup disabled")
	}

	return nil
}
