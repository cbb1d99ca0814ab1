// Package scheduler runs recurring distributions and maintenance jobs.
package scheduler

import (
	"strings"

	"github.com/aristath/distributor/internal/metrics"
	"github.com/aristath/distributor/internal/utils"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@daily"             - Every day at midnight
//   - "@every 90m"         - Every 90 minutes
func (s *Scheduler) AddJob(schedule string, job Job) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(schedule, func() {
		s.execute(job)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Int("entry_id", int(id)).
		Msg("Job registered")

	return id, nil
}

// Remove unregisters a job. Removing an unknown entry is a no-op.
func (s *Scheduler) Remove(id cron.EntryID) {
	s.cron.Remove(id)
	s.log.Debug().Int("entry_id", int(id)).Msg("Job removed")
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

// Len returns the number of registered jobs
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) execute(job Job) error {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")

	timer := utils.NewTimer(job.Name(), s.log)
	err := job.Run()
	timer.Stop()
	label := metricLabel(job.Name())
	if err != nil {
		metrics.ScheduledExecutions.WithLabelValues(label, metrics.StatusError).Inc()
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Msg("Job failed")
		return err
	}

	metrics.ScheduledExecutions.WithLabelValues(label, metrics.StatusSuccess).Inc()
	s.log.Debug().Str("job", job.Name()).Msg("Job completed")
	return nil
}

// metricLabel strips per-instance suffixes ("distribution:<id>") so the job
// label stays bounded
func metricLabel(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}
