package di

import (
	"testing"

	"github.com/aristath/distributor/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterJobs(t *testing.T) {
	cfg := testConfig(t)

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	container.Scheduler = scheduler.New(zerolog.Nop())
	t.Cleanup(func() { container.Close() })

	jobs, err := RegisterJobs(container, cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "daily_maintenance", jobs.DailyMaintenance.Name())
	assert.Equal(t, "weekly_maintenance", jobs.WeeklyMaintenance.Name())
	assert.Equal(t, "check_wal_checkpoints", jobs.CheckWALCheckpoints.Name())
	assert.Equal(t, 3, container.Scheduler.Len())

	// Jobs run against the real database
	assert.NoError(t, container.Scheduler.RunNow(jobs.CheckWALCheckpoints))
	assert.NoError(t, container.Scheduler.RunNow(jobs.WeeklyMaintenance))
}

func TestRegisterJobs_Errors(t *testing.T) {
	_, err := RegisterJobs(nil, testConfig(t), zerolog.Nop())
	assert.Error(t, err)

	_, err = RegisterJobs(&Container{}, testConfig(t), zerolog.Nop())
	assert.ErrorContains(t, err, "scheduler not initialized")
}
