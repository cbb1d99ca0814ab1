package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingExecutor struct {
	requests []distribution.Request
	err      error
}

func (e *recordingExecutor) Execute(ctx context.Context, req distribution.Request) (*distribution.Run, error) {
	e.requests = append(e.requests, req)
	run := &distribution.Run{ID: "run", ConfigID: req.ConfigID, Status: distribution.RunSubmitted}
	if e.err != nil {
		run.Status = distribution.RunFailed
		return run, e.err
	}
	return run, nil
}

func newTestRunner(t *testing.T, executor Executor) (*Runner, *Client) {
	t.Helper()
	client, _ := newTestClient(t)
	return NewRunner(client, executor, zerolog.Nop()), client
}

func TestRunner_ExecuteSendsFullTotal(t *testing.T) {
	executor := &recordingExecutor{}
	runner, client := newTestRunner(t, executor)
	ctx := context.Background()

	cfg, err := client.Save(ctx, saveRequest())
	require.NoError(t, err)

	run, err := runner.Execute(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, run.ConfigID)

	require.Len(t, executor.requests, 1)
	req := executor.requests[0]
	assert.Equal(t, "1000", req.Amount)
	assert.Equal(t, usdc, req.Asset)
	assert.Equal(t, int32(6), *req.Decimals)
	assert.Equal(t, shareGroups(), req.Groups)
	assert.Nil(t, req.Schedule)
}

func TestRunner_ExecuteUnknownConfig(t *testing.T) {
	runner, _ := newTestRunner(t, &recordingExecutor{})
	_, err := runner.Execute(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestRunner_ExecuteScheduledSplitsTotal(t *testing.T) {
	executor := &recordingExecutor{}
	runner, client := newTestRunner(t, executor)
	ctx := context.Background()

	req := saveRequest()
	req.Schedule = Schedule{Enabled: true, IntervalMinutes: 60, MaxExecutions: 3}
	cfg, err := client.Save(ctx, req)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		_, done, err := runner.ExecuteScheduled(ctx, cfg.ID)
		require.NoError(t, err)
		assert.Equal(t, i == 3, done)
	}

	require.Len(t, executor.requests, 3)
	assert.Equal(t, "333.333333", executor.requests[0].Amount)

	_, done, err := runner.ExecuteScheduled(ctx, cfg.ID)
	assert.ErrorIs(t, err, ErrScheduleExhausted)
	assert.True(t, done)
	assert.Len(t, executor.requests, 3)
}

func TestRunner_ExecuteScheduledAmountModeUsesShares(t *testing.T) {
	executor := &recordingExecutor{}
	runner, client := newTestRunner(t, executor)
	ctx := context.Background()

	req := saveRequest()
	req.TotalAmount = ""
	req.Groups = []allocation.WalletGroup{
		{Wallet: walletA, WalletAmount: "75", Strategies: allocation.FixedPreset(100)},
		{Wallet: walletB, WalletAmount: "25", Strategies: allocation.FixedPreset(100)},
	}
	req.Schedule = Schedule{Enabled: true, IntervalMinutes: 5, MaxExecutions: 4}
	cfg, err := client.Save(ctx, req)
	require.NoError(t, err)

	_, done, err := runner.ExecuteScheduled(ctx, cfg.ID)
	require.NoError(t, err)
	assert.False(t, done)

	sent := executor.requests[0]
	assert.Equal(t, "25", sent.Amount)
	assert.Equal(t, "75", sent.Groups[0].SharePercent)
	assert.Equal(t, "25", sent.Groups[1].SharePercent)
	assert.Empty(t, sent.Groups[0].WalletAmount)
}

func TestRunner_ExecuteScheduledUnlimited(t *testing.T) {
	executor := &recordingExecutor{}
	runner, client := newTestRunner(t, executor)
	ctx := context.Background()

	req := saveRequest()
	req.Schedule = Schedule{Enabled: true, IntervalMinutes: 1}
	cfg, err := client.Save(ctx, req)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, done, err := runner.ExecuteScheduled(ctx, cfg.ID)
		require.NoError(t, err)
		assert.False(t, done)
	}
	assert.Equal(t, "1000", executor.requests[4].Amount)

	stored, err := client.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), stored.Executions)
}

func TestRunner_ExecuteScheduledFailureNotCounted(t *testing.T) {
	executor := &recordingExecutor{err: errors.New("rpc unavailable")}
	runner, client := newTestRunner(t, executor)
	ctx := context.Background()

	req := saveRequest()
	req.Schedule = Schedule{Enabled: true, IntervalMinutes: 1, MaxExecutions: 2}
	cfg, err := client.Save(ctx, req)
	require.NoError(t, err)

	run, done, err := runner.ExecuteScheduled(ctx, cfg.ID)
	require.Error(t, err)
	assert.False(t, done)
	assert.Equal(t, distribution.RunFailed, run.Status)

	stored, err := client.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stored.Executions)
}

func TestRunner_ExecuteScheduledRequiresSchedule(t *testing.T) {
	runner, client := newTestRunner(t, &recordingExecutor{})
	cfg, err := client.Save(context.Background(), saveRequest())
	require.NoError(t, err)

	_, done, err := runner.ExecuteScheduled(context.Background(), cfg.ID)
	assert.Error(t, err)
	assert.True(t, done)
}
