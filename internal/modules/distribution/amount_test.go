package distribution

import (
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		decimals int32
		want     string
		wantErr  error
	}{
		{"whole usdc", "1000", 6, "1000000000", nil},
		{"fraction", "1250.5", 6, "1250500000", nil},
		{"smallest unit", "0.000001", 6, "1", nil},
		{"padded", " 42 ", 0, "42", nil},
		{"eighteen decimals", "1.5", 18, "1500000000000000000", nil},
		{"too precise", "0.0000001", 6, "", ErrAmountPrecision},
		{"zero", "0", 6, "", ErrInvalidAmount},
		{"negative", "-1", 6, "", ErrInvalidAmount},
		{"garbage", "ten", 6, "", ErrInvalidAmount},
		{"empty", "", 6, "", ErrInvalidAmount},
		{"overflow", "1" + strings.Repeat("0", 80), 0, "", ErrAmountOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.value, tt.decimals)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Dec())
		})
	}
}

func TestParseAmount_UnsupportedDecimals(t *testing.T) {
	_, err := ParseAmount("1", -1)
	assert.Error(t, err)
	_, err = ParseAmount("1", MaxAssetDecimals+1)
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1250.5", FormatAmount(uint256.NewInt(1250500000), 6))
	assert.Equal(t, "0.000001", FormatAmount(uint256.NewInt(1), 6))
	assert.Equal(t, "0", FormatAmount(nil, 6))
	assert.InDelta(t, 1250.5, AmountFloat(uint256.NewInt(1250500000), 6), 1e-9)
}

func TestPerExecution(t *testing.T) {
	total := uint256.NewInt(1000)

	assert.Equal(t, uint64(250), PerExecution(total, 4).Uint64())
	assert.Equal(t, uint64(333), PerExecution(total, 3).Uint64())
	assert.Equal(t, uint64(1000), PerExecution(total, 0).Uint64())
	assert.Equal(t, uint64(1000), total.Uint64(), "input must not change")
	assert.True(t, PerExecution(nil, 2).IsZero())
}
