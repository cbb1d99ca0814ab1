package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/aristath/distributor/internal/metrics"
	"github.com/aristath/distributor/internal/modules/registry"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ConfigLister lists configs with an enabled schedule
type ConfigLister interface {
	ListScheduled(ctx context.Context) ([]registry.Config, error)
}

// ScheduleSync keeps one DistributionJob registered per scheduled config
type ScheduleSync struct {
	scheduler *Scheduler
	lister    ConfigLister
	runner    ConfigRunner
	mu        sync.Mutex
	entries   map[string]cron.EntryID
	log       zerolog.Logger
}

// NewScheduleSync creates a schedule sync
func NewScheduleSync(scheduler *Scheduler, lister ConfigLister, runner ConfigRunner, log zerolog.Logger) *ScheduleSync {
	return &ScheduleSync{
		scheduler: scheduler,
		lister:    lister,
		runner:    runner,
		entries:   make(map[string]cron.EntryID),
		log:       log.With().Str("component", "schedule_sync").Logger(),
	}
}

// SyncAll registers every enabled schedule and returns how many are active
func (s *ScheduleSync) SyncAll(ctx context.Context) (int, error) {
	configs, err := s.lister.ListScheduled(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list scheduled configs: %w", err)
	}

	for _, cfg := range configs {
		if err := s.SyncConfig(cfg); err != nil {
			s.log.Error().Err(err).Str("config_id", cfg.ID).Msg("Failed to register schedule")
		}
	}

	active := s.Count()
	s.log.Info().Int("active", active).Msg("Schedules synced")
	return active, nil
}

// SyncConfig replaces the job of cfg. Disabled or exhausted schedules are
// only removed.
func (s *ScheduleSync) SyncConfig(cfg registry.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.updateGauge()

	s.removeLocked(cfg.ID)

	if !cfg.Schedule.Enabled || cfg.Exhausted() {
		return nil
	}
	if cfg.Schedule.IntervalMinutes == 0 {
		return fmt.Errorf("config %s: interval must be greater than 0", cfg.ID)
	}

	spec := fmt.Sprintf("@every %dm", cfg.Schedule.IntervalMinutes)
	job := NewDistributionJob(cfg.ID, s.runner, s.RemoveConfig, s.log)

	id, err := s.scheduler.AddJob(spec, job)
	if err != nil {
		return fmt.Errorf("failed to schedule config %s: %w", cfg.ID, err)
	}
	s.entries[cfg.ID] = id
	return nil
}

// RemoveConfig unregisters the job of a config, if any
func (s *ScheduleSync) RemoveConfig(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.updateGauge()

	s.removeLocked(id)
}

// Count returns the number of registered schedules
func (s *ScheduleSync) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Has reports whether a config has a registered job
func (s *ScheduleSync) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

func (s *ScheduleSync) removeLocked(id string) {
	if entry, ok := s.entries[id]; ok {
		s.scheduler.Remove(entry)
		delete(s.entries, id)
	}
}

func (s *ScheduleSync) updateGauge() {
	metrics.ActiveSchedules.Set(float64(len(s.entries)))
}
