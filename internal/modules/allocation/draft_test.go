package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDraft(t *testing.T) {
	draft := NewDraft()
	require.Len(t, draft, 1)
	assert.Equal(t, "100", draft[0].SharePercent)
	assert.Equal(t, []float64{60, 30, 10, 0}, subValues(draft[0].Strategies))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	state := NewDraft()
	state[0].Wallet = testAddress(0)

	next, err := Reduce(state, Action{Type: ActionSetStrategyPercent, Index: 0, Strategy: LendingSupply, Value: "90"})
	require.NoError(t, err)

	assert.Equal(t, "90", next[0].Strategies[LendingSupply].SubPercent)
	assert.Equal(t, "30", state[0].Strategies[LendingSupply].SubPercent)
}

func TestReduce_Actions(t *testing.T) {
	base := []WalletGroup{
		group(testAddress(0), "70", "100", "0", "0", "0"),
		group(testAddress(1), "30", "0", "100", "0", "0"),
	}

	tests := []struct {
		name   string
		action Action
		check  func(t *testing.T, got []WalletGroup)
	}{
		{
			name:   "add wallet",
			action: Action{Type: ActionAddWallet, Wallet: " " + testAddress(2) + " "},
			check: func(t *testing.T, got []WalletGroup) {
				require.Len(t, got, 3)
				assert.Equal(t, testAddress(2), got[2].Wallet)
				assert.Equal(t, "0", got[2].SharePercent)
				assert.Len(t, got[2].Strategies, StrategyCount)
			},
		},
		{
			name:   "remove wallet",
			action: Action{Type: ActionRemoveWallet, Index: 0},
			check: func(t *testing.T, got []WalletGroup) {
				require.Len(t, got, 1)
				assert.Equal(t, testAddress(1), got[0].Wallet)
			},
		},
		{
			name:   "set wallet",
			action: Action{Type: ActionSetWallet, Index: 1, Wallet: testAddress(7)},
			check: func(t *testing.T, got []WalletGroup) {
				assert.Equal(t, testAddress(7), got[1].Wallet)
			},
		},
		{
			name:   "set share",
			action: Action{Type: ActionSetShare, Index: 1, Value: "45.5"},
			check: func(t *testing.T, got []WalletGroup) {
				assert.Equal(t, "45.5", got[1].SharePercent)
				assert.False(t, got[1].UsesAmount())
			},
		},
		{
			name:   "set amount",
			action: Action{Type: ActionSetAmount, Index: 0, Value: "250"},
			check: func(t *testing.T, got []WalletGroup) {
				assert.Equal(t, "250", got[0].WalletAmount)
				assert.True(t, got[0].UsesAmount())
			},
		},
		{
			name:   "apply preset",
			action: Action{Type: ActionApplyPreset, Index: 0, Preset: PresetYield},
			check: func(t *testing.T, got []WalletGroup) {
				assert.Equal(t, []float64{0, 50, 50, 0}, subValues(got[0].Strategies))
			},
		},
		{
			name:   "even split",
			action: Action{Type: ActionEvenSplit, Index: 1},
			check: func(t *testing.T, got []WalletGroup) {
				assert.Equal(t, []float64{25, 25, 25, 25}, subValues(got[1].Strategies))
			},
		},
		{
			name:   "normalize",
			action: Action{Type: ActionNormalize, Index: 0},
			check: func(t *testing.T, got []WalletGroup) {
				assert.Equal(t, []float64{100, 0, 0, 0}, subValues(got[0].Strategies))
			},
		},
		{
			name:   "even split wallets",
			action: Action{Type: ActionEvenSplitWallets},
			check: func(t *testing.T, got []WalletGroup) {
				assert.Equal(t, "50", got[0].SharePercent)
				assert.Equal(t, "50", got[1].SharePercent)
			},
		},
		{
			name:   "normalize wallets",
			action: Action{Type: ActionNormalizeWallets},
			check: func(t *testing.T, got []WalletGroup) {
				assert.Equal(t, "70", got[0].SharePercent)
				assert.Equal(t, "30", got[1].SharePercent)
			},
		},
		{
			name:   "load",
			action: Action{Type: ActionLoad, Groups: []WalletGroup{group(testAddress(4), "100", "0", "0", "0", "100")}},
			check: func(t *testing.T, got []WalletGroup) {
				require.Len(t, got, 1)
				assert.Equal(t, testAddress(4), got[0].Wallet)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reduce(base, tt.action)
			require.NoError(t, err)
			tt.check(t, got)
			assert.Len(t, base, 2)
			assert.Equal(t, testAddress(0), base[0].Wallet)
			assert.Equal(t, "70", base[0].SharePercent)
		})
	}
}

func TestReduce_Rejections(t *testing.T) {
	full := make([]WalletGroup, 0, MaxWalletGroups)
	for i := 0; i < MaxWalletGroups; i++ {
		full = append(full, group(testAddress(i), "20", "100"))
	}

	tests := []struct {
		name   string
		state  []WalletGroup
		action Action
	}{
		{"add past the limit", full, Action{Type: ActionAddWallet}},
		{"remove last wallet", NewDraft(), Action{Type: ActionRemoveWallet, Index: 0}},
		{"index out of range", NewDraft(), Action{Type: ActionSetShare, Index: 3, Value: "10"}},
		{"negative index", NewDraft(), Action{Type: ActionSetWallet, Index: -1}},
		{"unknown strategy", NewDraft(), Action{Type: ActionSetStrategyPercent, Strategy: Strategy(8), Value: "1"}},
		{"unknown preset", NewDraft(), Action{Type: ActionApplyPreset, Preset: "moon"}},
		{"load nothing", NewDraft(), Action{Type: ActionLoad}},
		{"load too many", NewDraft(), Action{Type: ActionLoad, Groups: append(full, group(testAddress(9), "0"))}},
		{"unknown action", NewDraft(), Action{Type: "explode"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reduce(tt.state, tt.action)
			assert.ErrorIs(t, err, ErrInvalidAction)
			assert.Equal(t, tt.state, got)
		})
	}
}

func TestReduce_NilState(t *testing.T) {
	got, err := Reduce(nil, Action{Type: ActionAddWallet, Wallet: testAddress(0)})
	require.NoError(t, err)
	require.Len(t, got, 1)
}
