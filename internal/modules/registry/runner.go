package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrScheduleExhausted is returned when a scheduled config has no executions left
var ErrScheduleExhausted = errors.New("schedule has reached its maximum executions")

// Executor submits a distribution request
type Executor interface {
	Execute(ctx context.Context, req distribution.Request) (*distribution.Run, error)
}

// Runner executes stored configs through the distribution service
type Runner struct {
	client   *Client
	executor Executor
	log      zerolog.Logger
}

// NewRunner creates a config runner
func NewRunner(client *Client, executor Executor, log zerolog.Logger) *Runner {
	return &Runner{
		client:   client,
		executor: executor,
		log:      log.With().Str("component", "config_runner").Logger(),
	}
}

// Execute loads a config and distributes its full total once
func (r *Runner) Execute(ctx context.Context, id string) (*distribution.Run, error) {
	groups, cfg, err := r.client.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	return r.executor.Execute(ctx, requestFor(cfg, groups, cfg.TotalAmount))
}

// ExecuteScheduled runs one tick of a scheduled config: it distributes the
// per-execution share of the total and records the execution. done is true
// once the config has used all its executions.
func (r *Runner) ExecuteScheduled(ctx context.Context, id string) (run *distribution.Run, done bool, err error) {
	groups, cfg, err := r.client.Load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !cfg.Schedule.Enabled {
		return nil, true, fmt.Errorf("config %s has no enabled schedule", id)
	}
	if cfg.Exhausted() {
		return nil, true, ErrScheduleExhausted
	}

	total := cfg.TotalAmount
	if total == "" {
		total = decimal.NewFromFloat(allocation.TotalWalletAmount(groups)).String()
	}
	totalDec, err := decimal.NewFromString(total)
	if err != nil {
		return nil, false, &distribution.ValidationError{Violations: []string{"total amount is not a number"}}
	}
	groups = allocation.ToPercentMode(groups, totalDec.InexactFloat64())

	amount, err := perExecutionAmount(total, cfg.AssetDecimals, cfg.Schedule.MaxExecutions)
	if err != nil {
		return nil, false, &distribution.ValidationError{Violations: []string{"total amount: " + err.Error()}}
	}

	run, err = r.executor.Execute(ctx, requestFor(cfg, groups, amount))
	if err != nil {
		return run, false, err
	}

	executions, err := r.client.RecordExecution(ctx, id)
	if err != nil {
		return run, false, fmt.Errorf("failed to record execution of %s: %w", id, err)
	}

	done = cfg.Schedule.MaxExecutions > 0 && executions >= cfg.Schedule.MaxExecutions
	r.log.Info().
		Str("config_id", id).
		Uint64("executions", executions).
		Uint64("max_executions", cfg.Schedule.MaxExecutions).
		Str("amount", amount).
		Bool("done", done).
		Msg("Scheduled distribution executed")

	return run, done, nil
}

func requestFor(cfg *Config, groups []allocation.WalletGroup, amount string) distribution.Request {
	decimals := cfg.AssetDecimals
	return distribution.Request{
		ConfigID: cfg.ID,
		Groups:   groups,
		Asset:    cfg.Asset,
		Amount:   amount,
		Decimals: &decimals,
	}
}

// perExecutionAmount splits total across maxExecutions, truncated to the
// asset precision
func perExecutionAmount(total string, decimals int32, maxExecutions uint64) (string, error) {
	amount, err := distribution.ParseAmount(total, decimals)
	if err != nil {
		return "", err
	}

	per := distribution.PerExecution(amount, maxExecutions)
	if per.IsZero() {
		return "", fmt.Errorf("%s split over %d executions rounds to zero", total, maxExecutions)
	}
	return distribution.FormatAmount(per, decimals), nil
}
