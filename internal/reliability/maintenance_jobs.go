package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/distributor/internal/database"
	"github.com/aristath/distributor/internal/utils"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Disk space thresholds in GB
const (
	criticalFreeGB = 0.5
	lowFreeGB      = 5.0
)

// DailyMaintenanceJob checks integrity, truncates the WAL and watches disk space
type DailyMaintenanceJob struct {
	db      *database.DB
	dataDir string
	timeout time.Duration
	usage   func(path string) (*disk.UsageStat, error)
	log     zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(db *database.DB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		db:      db,
		dataDir: dataDir,
		timeout: 5 * time.Minute,
		usage:   disk.Usage,
		log:     log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.db.HealthCheck(ctx); err != nil {
		j.log.Error().Err(err).Msg("CRITICAL: Database integrity check failed")
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	if stats, err := j.db.GetStats(); err == nil {
		j.log.Info().
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Int64("freelist_count", stats.FreelistCount).
			Msg("Database metrics")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")

	return nil
}

func (j *DailyMaintenanceJob) checkDiskSpace() error {
	usage, err := j.usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	availableGB := float64(usage.Free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	if availableGB < criticalFreeGB {
		j.log.Error().Float64("available_gb", availableGB).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", availableGB, j.dataDir)
	}
	if availableGB < lowFreeGB {
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}

	return nil
}

// WeeklyMaintenanceJob compacts the database
type WeeklyMaintenanceJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewWeeklyMaintenanceJob creates a new weekly maintenance job
func NewWeeklyMaintenanceJob(db *database.DB, log zerolog.Logger) *WeeklyMaintenanceJob {
	return &WeeklyMaintenanceJob{
		db:  db,
		log: log.With().Str("job", "weekly_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *WeeklyMaintenanceJob) Name() string {
	return "weekly_maintenance"
}

// Run executes VACUUM and logs the space reclaimed
func (j *WeeklyMaintenanceJob) Run() error {
	before, err := j.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	stop := utils.OperationTimer("vacuum", j.log)
	if _, err := j.db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}
	stop()

	after, err := j.db.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	j.log.Info().
		Int64("pages_before", before.PageCount).
		Int64("pages_after", after.PageCount).
		Int64("pages_reclaimed", before.PageCount-after.PageCount).
		Msg("VACUUM completed")

	return nil
}
