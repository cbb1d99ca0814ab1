package distribution

import (
	"context"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParams() DistributeParams {
	return DistributeParams{
		Asset:  usdc,
		Amount: uint256.NewInt(1_000_000),
		Recipients: []Recipient{
			{Wallet: walletA, SharePercentBps: 6000, Strategy: 0},
			{Wallet: walletB, SharePercentBps: 4000, Strategy: 2},
		},
	}
}

func TestDryRunSubmitter_Deterministic(t *testing.T) {
	s := NewDryRunSubmitter(zerolog.Nop())
	ctx := context.Background()

	first, err := s.Distribute(ctx, sampleParams())
	require.NoError(t, err)
	second, err := s.Distribute(ctx, sampleParams())
	require.NoError(t, err)

	assert.Equal(t, KindDistribute, first.Kind)
	assert.True(t, strings.HasPrefix(first.TxHash, "0x"))
	assert.Len(t, first.TxHash, 66)
	assert.Equal(t, first.TxHash, second.TxHash)

	changed := sampleParams()
	changed.Recipients[0].SharePercentBps = 5999
	third, err := s.Distribute(ctx, changed)
	require.NoError(t, err)
	assert.NotEqual(t, first.TxHash, third.TxHash)
}

func TestDryRunSubmitter_Schedule(t *testing.T) {
	s := NewDryRunSubmitter(zerolog.Nop())

	oneShot, err := s.Distribute(context.Background(), sampleParams())
	require.NoError(t, err)

	receipt, err := s.Schedule(context.Background(), BuildScheduleParams(sampleParams(), 3600, 10))
	require.NoError(t, err)
	assert.Equal(t, KindSchedule, receipt.Kind)
	assert.NotEqual(t, oneShot.TxHash, receipt.TxHash)
}

func TestDryRunSubmitter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDryRunSubmitter(zerolog.Nop()).Distribute(ctx, sampleParams())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEncodeDecodeCall(t *testing.T) {
	sched := BuildScheduleParams(sampleParams(), 600, 4)

	data, err := EncodeCall(KindSchedule, sched.DistributeParams, sched.IntervalSeconds, sched.MaxExecutions)
	require.NoError(t, err)

	kind, decoded, err := DecodeCall(data)
	require.NoError(t, err)
	assert.Equal(t, KindSchedule, kind)
	assert.Equal(t, "250000", decoded.Amount.Dec())
	assert.Equal(t, sched.Recipients, decoded.Recipients)
	assert.Equal(t, uint64(600), decoded.IntervalSeconds)
	assert.Equal(t, uint64(4), decoded.MaxExecutions)

	_, _, err = DecodeCall([]byte{0xc1})
	assert.Error(t, err)
}
