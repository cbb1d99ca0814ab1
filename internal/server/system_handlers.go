package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/distributor/internal/database"
	"github.com/aristath/distributor/internal/reliability"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ScheduleCounter reports how many recurring distributions are registered
type ScheduleCounter interface {
	Count() int
}

// BackupService is the part of the R2 backup service exposed over HTTP
type BackupService interface {
	CreateAndUpload(ctx context.Context) (*reliability.BackupInfo, error)
	List(ctx context.Context) ([]reliability.BackupInfo, error)
}

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	db          *database.DB
	schedules   ScheduleCounter
	backups     BackupService
	sampleStats func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance. schedules and
// backups may be nil when the scheduler or backups are disabled.
func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB, schedules ScheduleCounter, backups BackupService) *SystemHandlers {
	h := &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		db:          db,
		schedules:   schedules,
		backups:     backups,
	}
	h.sampleStats = h.getSystemStats
	return h
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status           string          `json:"status"`
	Version          string          `json:"version"`
	UptimeHours      float64         `json:"uptime_hours"`
	CPUPercent       float64         `json:"cpu_percent"`
	RAMPercent       float64         `json:"ram_percent"`
	Goroutines       int             `json:"goroutines"`
	ActiveSchedules  int             `json:"active_schedules"`
	SchedulerEnabled bool            `json:"scheduler_enabled"`
	BackupsEnabled   bool            `json:"backups_enabled"`
	Database         *database.Stats `json:"database,omitempty"`
	LastChecked      string          `json:"last_checked"`
}

// DatabaseStatsResponse is returned by GET /api/system/database
type DatabaseStatsResponse struct {
	Name        string          `json:"name"`
	Path        string          `json:"path"`
	SizeMB      float64         `json:"size_mb"`
	Stats       *database.Stats `json:"stats"`
	LastChecked string          `json:"last_checked"`
}

// HandleSystemStatus returns process, host and scheduler status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, ramPercent := h.sampleStats()

	response := SystemStatusResponse{
		Status:           "healthy",
		Version:          version,
		UptimeHours:      time.Since(h.startupTime).Hours(),
		CPUPercent:       cpuPercent,
		RAMPercent:       ramPercent,
		Goroutines:       runtime.NumGoroutine(),
		SchedulerEnabled: h.schedules != nil,
		BackupsEnabled:   h.backups != nil,
		LastChecked:      time.Now().Format(time.RFC3339),
	}

	if h.schedules != nil {
		response.ActiveSchedules = h.schedules.Count()
	}

	if h.db != nil {
		stats, err := h.db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database stats")
			response.Status = "degraded"
		} else {
			response.Database = stats
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	if h.db == nil {
		h.writeError(w, http.StatusServiceUnavailable, "database not initialized")
		return
	}

	stats, err := h.db.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		h.writeError(w, http.StatusInternalServerError, "failed to get database stats")
		return
	}

	h.writeJSON(w, http.StatusOK, DatabaseStatsResponse{
		Name:        h.db.Name(),
		Path:        h.db.Path(),
		SizeMB:      float64(stats.SizeBytes+stats.WALSizeBytes) / 1024 / 1024,
		Stats:       stats,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleListBackups lists the backups stored in R2, newest first
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		h.writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	backups, err := h.backups.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		h.writeError(w, http.StatusBadGateway, "failed to list backups")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	})
}

// HandleCreateBackup snapshots the database and uploads it immediately
func (h *SystemHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		h.writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	info, err := h.backups.CreateAndUpload(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		h.writeError(w, http.StatusBadGateway, "backup failed")
		return
	}

	h.log.Info().Str("key", info.Key).Msg("Manual backup uploaded")
	h.writeJSON(w, http.StatusCreated, info)
}

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percent")
		cpuPercent = []float64{0}
	}

	memStats, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory stats")
		return averageCPU(cpuPercent), 0
	}

	return averageCPU(cpuPercent), memStats.UsedPercent
}

func averageCPU(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *SystemHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
