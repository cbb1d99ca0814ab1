package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/distributor/internal/reliability"
	"github.com/rs/zerolog"
)

// BackupService uploads and rotates database backups
type BackupService interface {
	CreateAndUpload(ctx context.Context) (*reliability.BackupInfo, error)
	Rotate(ctx context.Context, retentionDays int) (int, error)
}

// BackupJob uploads a database backup and rotates old ones
type BackupJob struct {
	service       BackupService
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job. A retention of 0 keeps every backup.
func NewBackupJob(service BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		timeout:       10 * time.Minute,
		log:           log.With().Str("job", "r2_backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "r2_backup"
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	info, err := j.service.CreateAndUpload(ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	deleted, err := j.service.Rotate(ctx, j.retentionDays)
	if err != nil {
		// The backup itself succeeded
		j.log.Warn().Err(err).Msg("Backup rotation failed")
		return nil
	}

	j.log.Info().
		Str("key", info.Key).
		Int("rotated", deleted).
		Msg("Backup job completed")

	return nil
}
