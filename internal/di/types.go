/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/aristath/distributor/internal/database"
	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/aristath/distributor/internal/modules/registry"
	"github.com/aristath/distributor/internal/reliability"
	"github.com/aristath/distributor/internal/scheduler"
)

// Container holds all application dependencies
type Container struct {
	// Database
	DB *database.DB

	// Repositories
	RunRepo    *distribution.RunRepository
	ConfigRepo *registry.Repository

	// Distribution
	Submitter           distribution.Submitter
	DistributionService *distribution.Service

	// Config registry
	RegistryClient *registry.Client
	ConfigRunner   *registry.Runner

	// Scheduling
	Scheduler    *scheduler.Scheduler
	ScheduleSync *scheduler.ScheduleSync // nil when the scheduler is disabled

	// Backups (nil when R2 is not configured)
	R2Client      *reliability.R2Client
	BackupService *reliability.R2BackupService
}

// JobInstances holds the background jobs for manual triggering
type JobInstances struct {
	DailyMaintenance    scheduler.Job
	WeeklyMaintenance   scheduler.Job
	CheckWALCheckpoints scheduler.Job
	Backup              scheduler.Job // nil when backups are disabled
}

// Close releases the resources held by the container
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
