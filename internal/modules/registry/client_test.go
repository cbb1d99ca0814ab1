package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/distributor/internal/modules/allocation"
	"github.com/aristath/distributor/internal/modules/distribution"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *Repository) {
	t.Helper()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	client := NewClient(repo, 6, zerolog.Nop())
	client.now = func() time.Time { return time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC) }
	ids := 0
	client.newID = func() string {
		ids++
		return "cfg-" + string(rune('0'+ids))
	}
	return client, repo
}

func shareGroups() []allocation.WalletGroup {
	return []allocation.WalletGroup{
		{Wallet: walletA, SharePercent: "60", Strategies: []allocation.StrategyAllocation{
			{Strategy: allocation.DirectTransfer, SubPercent: "50"},
			{Strategy: allocation.LendingSupply, SubPercent: "50"},
		}},
		{Wallet: walletB, SharePercent: "40", Strategies: []allocation.StrategyAllocation{
			{Strategy: allocation.VaultDeposit, SubPercent: "100"},
		}},
	}
}

func saveRequest() SaveRequest {
	return SaveRequest{
		Owner:       owner,
		Name:        "payroll",
		Asset:       usdc,
		TotalAmount: "1000",
		Groups:      shareGroups(),
	}
}

func TestClient_SaveAndLoadRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	cfg, err := client.Save(ctx, saveRequest())
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", cfg.ID)
	assert.Equal(t, int32(6), cfg.AssetDecimals)
	assert.Equal(t, 2, cfg.WalletGroupCount)

	groups, loaded, err := client.Load(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, shareGroups(), groups)
	assert.Equal(t, "payroll", loaded.Name)
	assert.Equal(t, "1000", loaded.TotalAmount)
}

func TestClient_SaveKeepsNonTerminatingSplitsValid(t *testing.T) {
	const walletC = "0x4444444444444444444444444444444444444444"

	thirds := func(wallets ...string) []allocation.WalletGroup {
		groups := make([]allocation.WalletGroup, len(wallets))
		for i, w := range wallets {
			groups[i] = allocation.WalletGroup{Wallet: w, SharePercent: "1", Strategies: allocation.FixedPreset(100)}
		}
		return allocation.NormalizeWallets(groups, 0)
	}

	tests := []struct {
		name   string
		groups []allocation.WalletGroup
	}{
		{
			name: "strategy thirds",
			groups: []allocation.WalletGroup{
				{Wallet: walletA, SharePercent: "100", Strategies: allocation.Normalize(allocation.FixedPreset(1, 1, 1, 0))},
			},
		},
		{
			name: "strategy sixths",
			groups: []allocation.WalletGroup{
				{Wallet: walletA, SharePercent: "100", Strategies: allocation.Normalize(allocation.FixedPreset(1, 1, 1, 3))},
			},
		},
		{
			name:   "wallet thirds",
			groups: thirds(walletA, walletB, walletC),
		},
		{
			name: "both levels",
			groups: func() []allocation.WalletGroup {
				groups := thirds(walletA, walletB, walletC)
				groups[0].Strategies = allocation.Normalize(allocation.FixedPreset(1, 1, 1, 0))
				groups[2].Strategies = allocation.Normalize(allocation.FixedPreset(2, 3, 0, 1))
				return groups
			}(),
		},
		{
			name: "normalized shares",
			groups: allocation.NormalizeWallets([]allocation.WalletGroup{
				{Wallet: walletA, SharePercent: "7", Strategies: allocation.FixedPreset(100)},
				{Wallet: walletB, SharePercent: "11", Strategies: allocation.Normalize(allocation.FixedPreset(5, 7, 0, 0))},
			}, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t)
			ctx := context.Background()

			before, err := allocation.Flatten(tt.groups, 1000)
			require.NoError(t, err)
			require.Empty(t, allocation.Validate(tt.groups, before, 1000))

			req := saveRequest()
			req.Groups = tt.groups
			cfg, err := client.Save(ctx, req)
			require.NoError(t, err)

			loaded, _, err := client.Load(ctx, cfg.ID)
			require.NoError(t, err)

			after, err := allocation.Flatten(loaded, 1000)
			require.NoError(t, err)
			assert.Empty(t, allocation.Validate(loaded, after, 1000))
			assert.Len(t, after, len(before))
		})
	}
}

func TestClient_SavePushesDriftOntoLargestEntry(t *testing.T) {
	client, repo := newTestClient(t)

	req := saveRequest()
	req.Groups = []allocation.WalletGroup{
		{Wallet: walletA, SharePercent: "100", Strategies: allocation.Normalize(allocation.FixedPreset(1, 1, 1, 3))},
	}

	cfg, err := client.Save(context.Background(), req)
	require.NoError(t, err)

	var stored []uint16
	for j := 0; j < allocation.StrategyCount; j++ {
		s, err := repo.GetStrategy(cfg.ID, 0, j)
		require.NoError(t, err)
		stored = append(stored, s.SubPercentBps)
	}
	assert.Equal(t, []uint16{1667, 1667, 1667, 4999}, stored)
}

func TestClient_SaveStoresBasisPoints(t *testing.T) {
	client, repo := newTestClient(t)

	req := saveRequest()
	req.Groups = []allocation.WalletGroup{
		{Wallet: walletA, SharePercent: "33.33", Strategies: allocation.FixedPreset(100)},
		{Wallet: walletB, SharePercent: "66.67", Strategies: allocation.FixedPreset(12.5, 87.5)},
	}

	cfg, err := client.Save(context.Background(), req)
	require.NoError(t, err)

	g0, err := repo.GetGroup(cfg.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(3333), g0.SharePercentBps)

	s, err := repo.GetStrategy(cfg.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint16(1250), s.SubPercentBps)

	groups, _, err := client.Load(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "33.33", groups[0].SharePercent)
	assert.Equal(t, "12.5", groups[1].Strategies[0].SubPercent)
}

func TestClient_SaveAmountModeKeepsWalletAmount(t *testing.T) {
	client, _ := newTestClient(t)

	req := saveRequest()
	req.TotalAmount = ""
	req.Groups = []allocation.WalletGroup{
		{Wallet: walletA, WalletAmount: "75", Strategies: allocation.FixedPreset(100)},
		{Wallet: walletB, WalletAmount: "25", Strategies: allocation.FixedPreset(0, 100)},
	}

	cfg, err := client.Save(context.Background(), req)
	require.NoError(t, err)

	groups, _, err := client.Load(context.Background(), cfg.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "75", groups[0].WalletAmount)
	assert.Empty(t, groups[0].SharePercent)
	assert.True(t, groups[1].UsesAmount())
}

func TestClient_SaveCollectsViolations(t *testing.T) {
	client, repo := newTestClient(t)

	req := saveRequest()
	req.Name = " "
	req.Owner = "nobody"
	req.Groups[1].SharePercent = "30"
	req.Schedule = Schedule{Enabled: true}

	_, err := client.Save(context.Background(), req)
	var ve *distribution.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{
		"name is required",
		"owner: invalid address",
		allocation.MsgRecipientsTotal,
		"schedule: interval must be greater than 0",
	}, ve.Violations)

	configs, err := repo.List("")
	require.NoError(t, err)
	assert.Empty(t, configs)
}

func TestClient_SaveExistingKeepsCreationAndExecutions(t *testing.T) {
	client, repo := newTestClient(t)
	ctx := context.Background()

	cfg, err := client.Save(ctx, saveRequest())
	require.NoError(t, err)
	_, err = repo.RecordExecution(cfg.ID)
	require.NoError(t, err)

	created := cfg.CreatedAt
	client.now = func() time.Time { return created.Add(24 * time.Hour) }

	req := saveRequest()
	req.ID = cfg.ID
	req.Name = "payroll v2"
	updated, err := client.Save(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, cfg.ID, updated.ID)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, uint64(1), updated.Executions)

	stored, err := client.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "payroll v2", stored.Name)
	assert.Equal(t, created.Add(24*time.Hour), stored.UpdatedAt)
}

func TestClient_LoadErrors(t *testing.T) {
	client, repo := newTestClient(t)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		_, _, err := client.Load(ctx, "missing")
		var le *LoadError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, "missing", le.ID)
		assert.True(t, IsNotFound(err))
	})

	t.Run("missing group", func(t *testing.T) {
		cfg := sampleConfig("broken")
		require.NoError(t, repo.Save(cfg, nil, nil))
		_, err := repo.db.Exec(`UPDATE configs SET wallet_group_count = 1 WHERE id = ?`, "broken")
		require.NoError(t, err)

		_, _, err = client.Load(ctx, "broken")
		var le *LoadError
		require.True(t, errors.As(err, &le))
		assert.Contains(t, le.Error(), "wallet group 0 is missing")
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := client.Load(cancelled, "any")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_ListAndDelete(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	cfg, err := client.Save(ctx, saveRequest())
	require.NoError(t, err)

	configs, err := client.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, configs, 1)

	require.NoError(t, client.Delete(ctx, cfg.ID))
	assert.True(t, IsNotFound(client.Delete(ctx, cfg.ID)))

	_, err = client.Get(ctx, cfg.ID)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}
