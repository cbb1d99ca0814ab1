// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/distributor/internal/config"
	"github.com/aristath/distributor/internal/reliability"
	"github.com/aristath/distributor/internal/scheduler"
	"github.com/rs/zerolog"
)

// Cron specs (seconds field first)
const (
	dailyMaintenanceSchedule  = "0 0 3 * * *"
	weeklyMaintenanceSchedule = "0 0 4 * * 0"
	walCheckSchedule          = "0 */30 * * * *"
)

// RegisterJobs creates the maintenance and backup jobs and adds them to the
// scheduler. Recurring distributions are registered separately by ScheduleSync.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}
	if container.Scheduler == nil {
		return nil, fmt.Errorf("scheduler not initialized")
	}

	instances := &JobInstances{
		DailyMaintenance:    reliability.NewDailyMaintenanceJob(container.DB, cfg.DataDir, log),
		WeeklyMaintenance:   reliability.NewWeeklyMaintenanceJob(container.DB, log),
		CheckWALCheckpoints: scheduler.NewCheckWALCheckpointsJob(container.DB, log),
	}

	jobs := []struct {
		spec string
		job  scheduler.Job
	}{
		{dailyMaintenanceSchedule, instances.DailyMaintenance},
		{weeklyMaintenanceSchedule, instances.WeeklyMaintenance},
		{walCheckSchedule, instances.CheckWALCheckpoints},
	}

	if container.BackupService != nil {
		instances.Backup = scheduler.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		jobs = append(jobs, struct {
			spec string
			job  scheduler.Job
		}{cfg.Backup.Schedule, instances.Backup})
	}

	for _, j := range jobs {
		if _, err := container.Scheduler.AddJob(j.spec, j.job); err != nil {
			return nil, fmt.Errorf("failed to register %s job: %w", j.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(jobs)).Msg("Background jobs registered")

	return instances, nil
}
