package registry

import (
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/distributor/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const (
	walletA = "0x1111111111111111111111111111111111111111"
	walletB = "0x2222222222222222222222222222222222222222"
	owner   = "0x3333333333333333333333333333333333333333"
	usdc    = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.ApplySchema(db))
	return db
}

func sampleConfig(id string) *Config {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Config{
		ID:            id,
		Owner:         owner,
		Name:          "payroll",
		Asset:         usdc,
		AssetDecimals: 6,
		TotalAmount:   "1000",
		Schedule:      Schedule{Enabled: true, IntervalMinutes: 60, MaxExecutions: 4},
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func sampleRecords() ([]GroupRecord, [][]StrategyRecord) {
	groups := []GroupRecord{
		{Wallet: walletA, SharePercentBps: 6000},
		{Wallet: walletB, WalletAmount: "400"},
	}
	strategies := [][]StrategyRecord{
		{{Strategy: 0, SubPercentBps: 5000}, {Strategy: 1, SubPercentBps: 5000}},
		{{Strategy: 2, SubPercentBps: 10000}},
	}
	return groups, strategies
}

func TestRepository_SaveAndIndexedReads(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	groups, strategies := sampleRecords()

	cfg := sampleConfig("cfg-1")
	require.NoError(t, repo.Save(cfg, groups, strategies))
	assert.Equal(t, 2, cfg.WalletGroupCount)

	stored, err := repo.GetConfig("cfg-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "payroll", stored.Name)
	assert.Equal(t, int32(6), stored.AssetDecimals)
	assert.Equal(t, 2, stored.WalletGroupCount)
	assert.True(t, stored.Schedule.Enabled)
	assert.Equal(t, uint64(60), stored.Schedule.IntervalMinutes)
	assert.Equal(t, uint64(4), stored.Schedule.MaxExecutions)
	assert.Equal(t, cfg.CreatedAt, stored.CreatedAt)

	g0, err := repo.GetGroup("cfg-1", 0)
	require.NoError(t, err)
	assert.Equal(t, &GroupRecord{Wallet: walletA, SharePercentBps: 6000, StrategyCount: 2}, g0)

	g1, err := repo.GetGroup("cfg-1", 1)
	require.NoError(t, err)
	assert.Equal(t, &GroupRecord{Wallet: walletB, WalletAmount: "400", StrategyCount: 1}, g1)

	s, err := repo.GetStrategy("cfg-1", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, &StrategyRecord{Strategy: 1, SubPercentBps: 5000}, s)
}

func TestRepository_MissingRowsReturnNil(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())

	cfg, err := repo.GetConfig("missing")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	g, err := repo.GetGroup("missing", 0)
	require.NoError(t, err)
	assert.Nil(t, g)

	s, err := repo.GetStrategy("missing", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRepository_SaveReplacesChildren(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	groups, strategies := sampleRecords()
	require.NoError(t, repo.Save(sampleConfig("cfg-1"), groups, strategies))

	cfg := sampleConfig("cfg-1")
	cfg.Name = "renamed"
	require.NoError(t, repo.Save(cfg,
		[]GroupRecord{{Wallet: walletB, SharePercentBps: 10000}},
		[][]StrategyRecord{{{Strategy: 3, SubPercentBps: 10000}}},
	))

	stored, err := repo.GetConfig("cfg-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, 1, stored.WalletGroupCount)

	g1, err := repo.GetGroup("cfg-1", 1)
	require.NoError(t, err)
	assert.Nil(t, g1)

	s, err := repo.GetStrategy("cfg-1", 0, 1)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestRepository_SaveRejectsMismatchedStrategies(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	groups, _ := sampleRecords()

	err := repo.Save(sampleConfig("cfg-1"), groups, nil)
	assert.Error(t, err)
}

func TestRepository_ListAndListScheduled(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	groups, strategies := sampleRecords()

	first := sampleConfig("cfg-1")
	require.NoError(t, repo.Save(first, groups, strategies))

	second := sampleConfig("cfg-2")
	second.Owner = walletA
	second.Schedule = Schedule{}
	second.UpdatedAt = first.UpdatedAt.Add(time.Hour)
	require.NoError(t, repo.Save(second, groups, strategies))

	all, err := repo.List("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "cfg-2", all[0].ID)

	owned, err := repo.List(owner)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "cfg-1", owned[0].ID)

	scheduled, err := repo.ListScheduled()
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "cfg-1", scheduled[0].ID)
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	groups, strategies := sampleRecords()
	require.NoError(t, repo.Save(sampleConfig("cfg-1"), groups, strategies))

	require.NoError(t, repo.Delete("cfg-1"))

	cfg, err := repo.GetConfig("cfg-1")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	g, err := repo.GetGroup("cfg-1", 0)
	require.NoError(t, err)
	assert.Nil(t, g)

	assert.ErrorIs(t, repo.Delete("cfg-1"), ErrConfigNotFound)
}

func TestRepository_RecordExecution(t *testing.T) {
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	groups, strategies := sampleRecords()
	require.NoError(t, repo.Save(sampleConfig("cfg-1"), groups, strategies))

	n, err := repo.RecordExecution("cfg-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	n, err = repo.RecordExecution("cfg-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	_, err = repo.RecordExecution("missing")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
