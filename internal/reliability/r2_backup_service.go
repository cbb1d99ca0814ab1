// Package reliability provides database backups and maintenance jobs.
package reliability

import (
	"compress/gzip"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aristath/distributor/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	backupPrefix    = "backups/distributor-"
	backupSuffix    = ".db.gz"
	backupTimestamp = "20060102-150405"
	// minBackupsToKeep survive rotation regardless of age
	minBackupsToKeep = 3
)

// Snapshotter writes a consistent copy of a database to a new file
type Snapshotter interface {
	VacuumInto(ctx context.Context, dest string) error
}

// BackupInfo describes a backup stored in the bucket
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
	Checksum  string    `json:"checksum,omitempty"`
}

// R2BackupService snapshots the distributor database and uploads it to R2
type R2BackupService struct {
	store   ObjectStore
	db      Snapshotter
	dataDir string
	now     func() time.Time
	log     zerolog.Logger
}

// NewR2BackupService creates a new R2 backup service
func NewR2BackupService(store ObjectStore, db Snapshotter, dataDir string, log zerolog.Logger) *R2BackupService {
	return &R2BackupService{
		store:   store,
		db:      db,
		dataDir: dataDir,
		now:     time.Now,
		log:     log.With().Str("service", "r2_backup").Logger(),
	}
}

// BackupKey returns the object key for a backup taken at t
func BackupKey(t time.Time) string {
	return backupPrefix + t.UTC().Format(backupTimestamp) + backupSuffix
}

// ParseBackupKey extracts the timestamp from a backup key
func ParseBackupKey(key string) (time.Time, bool) {
	if !strings.HasPrefix(key, backupPrefix) || !strings.HasSuffix(key, backupSuffix) {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(key, backupPrefix), backupSuffix)
	t, err := time.Parse(backupTimestamp, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CreateAndUpload snapshots the database with VACUUM INTO, gzips the copy and
// uploads it
func (s *R2BackupService) CreateAndUpload(ctx context.Context) (*BackupInfo, error) {
	info, err := s.createAndUpload(ctx)
	if err != nil {
		metrics.Backups.WithLabelValues(metrics.StatusError).Inc()
		s.log.Error().Err(err).Msg("R2 backup failed")
		return nil, err
	}

	metrics.Backups.WithLabelValues(metrics.StatusSuccess).Inc()
	metrics.BackupSize.Set(float64(info.SizeBytes))
	return info, nil
}

func (s *R2BackupService) createAndUpload(ctx context.Context) (*BackupInfo, error) {
	s.log.Info().Msg("Starting R2 backup")
	startTime := time.Now()

	stagingDir := filepath.Join(s.dataDir, "r2-staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	taken := s.now().UTC().Truncate(time.Second)
	key := BackupKey(taken)

	snapshotPath := filepath.Join(stagingDir, "distributor.db")
	if err := s.db.VacuumInto(ctx, snapshotPath); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	archivePath := snapshotPath + ".gz"
	checksum, err := compressFile(snapshotPath, archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	if err := s.store.Upload(ctx, key, archiveFile, archiveInfo.Size()); err != nil {
		return nil, fmt.Errorf("failed to upload to r2: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("key", key).
		Int64("size_bytes", archiveInfo.Size()).
		Str("checksum", checksum).
		Msg("R2 backup completed successfully")

	return &BackupInfo{
		Key:       key,
		Timestamp: taken,
		SizeBytes: archiveInfo.Size(),
		Checksum:  checksum,
	}, nil
}

// List returns the stored backups, newest first
func (s *R2BackupService) List(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list r2 backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	now := s.now()

	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}

		timestamp, ok := ParseBackupKey(*obj.Key)
		if !ok {
			s.log.Warn().Str("key", *obj.Key).Msg("Skipping object with unexpected backup key")
			continue
		}

		var sizeBytes int64
		if obj.Size != nil {
			sizeBytes = *obj.Size
		}

		backups = append(backups, BackupInfo{
			Key:       *obj.Key,
			Timestamp: timestamp,
			SizeBytes: sizeBytes,
			AgeHours:  int64(now.Sub(timestamp).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// Rotate deletes backups older than retentionDays, always keeping the newest
// three. A retention of 0 keeps everything. It returns the number deleted.
func (s *R2BackupService) Rotate(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, backup := range backups[minBackupsToKeep:] {
		if !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("R2 backup rotation completed")

	return deleted, nil
}

// compressFile gzips src into dst and returns the sha256 of the uncompressed data
func compressFile(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	hash := sha256.New()
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(io.MultiWriter(gz, hash), in); err != nil {
		return "", err
	}
	if err := gz.Close(); err != nil {
		return "", err
	}

	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}
