package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/aristath/distributor/internal/modules/registry"
	"github.com/rs/zerolog"
)

// ConfigRunner executes one tick of a scheduled config
type ConfigRunner interface {
	ExecuteScheduled(ctx context.Context, id string) (*distribution.Run, bool, error)
}

// DistributionJob distributes the per-execution amount of one saved config
type DistributionJob struct {
	configID string
	runner   ConfigRunner
	onDone   func(configID string)
	timeout  time.Duration
	log      zerolog.Logger
}

// NewDistributionJob creates a job for configID. onDone is called once the
// config has used all its executions.
func NewDistributionJob(configID string, runner ConfigRunner, onDone func(string), log zerolog.Logger) *DistributionJob {
	return &DistributionJob{
		configID: configID,
		runner:   runner,
		onDone:   onDone,
		timeout:  2 * time.Minute,
		log:      log.With().Str("job", "distribution").Str("config_id", configID).Logger(),
	}
}

// Name returns the job name
func (j *DistributionJob) Name() string {
	return "distribution:" + j.configID
}

// Run executes one scheduled distribution
func (j *DistributionJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	run, done, err := j.runner.ExecuteScheduled(ctx, j.configID)
	if done {
		j.log.Info().Msg("Schedule complete, unregistering")
		if j.onDone != nil {
			j.onDone(j.configID)
		}
	}

	if errors.Is(err, registry.ErrScheduleExhausted) {
		return nil
	}
	if err != nil {
		return err
	}

	j.log.Debug().Str("run_id", run.ID).Str("tx_hash", run.TxHash).Msg("Scheduled distribution submitted")
	return nil
}
