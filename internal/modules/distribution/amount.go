package distribution

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// MaxAssetDecimals bounds the precision accepted for an asset
const MaxAssetDecimals = 36

var (
	// ErrInvalidAmount is returned for amounts that are not positive decimals
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountPrecision is returned when an amount has more fractional digits than the asset supports
	ErrAmountPrecision = errors.New("amount exceeds asset precision")
	// ErrAmountOverflow is returned when a scaled amount does not fit in uint256
	ErrAmountOverflow = errors.New("amount overflows uint256")
)

// ParseAmount scales a human decimal amount ("1250.5") to the asset's smallest
// integer unit
func ParseAmount(value string, decimals int32) (*uint256.Int, error) {
	if decimals < 0 || decimals > MaxAssetDecimals {
		return nil, fmt.Errorf("unsupported asset decimals %d", decimals)
	}

	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if !d.IsPositive() {
		return nil, fmt.Errorf("%w: must be greater than 0", ErrInvalidAmount)
	}

	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrAmountPrecision, value, decimals)
	}

	amount, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, ErrAmountOverflow
	}
	return amount, nil
}

// FormatAmount renders a smallest-unit amount as a human decimal string
func FormatAmount(amount *uint256.Int, decimals int32) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount.ToBig(), -decimals).String()
}

// AmountFloat returns a smallest-unit amount in human units for percentage math
func AmountFloat(amount *uint256.Int, decimals int32) float64 {
	if amount == nil {
		return 0
	}
	return decimal.NewFromBigInt(amount.ToBig(), -decimals).InexactFloat64()
}

// PerExecution splits a total across maxExecutions runs. Zero executions
// means unlimited, so the full amount is sent every time.
func PerExecution(total *uint256.Int, maxExecutions uint64) *uint256.Int {
	if total == nil {
		return new(uint256.Int)
	}
	if maxExecutions == 0 {
		return new(uint256.Int).Set(total)
	}
	return new(uint256.Int).Div(total, uint256.NewInt(maxExecutions))
}

func amountDec(amount *uint256.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.Dec()
}

func parseDec(value string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	return amount, nil
}
