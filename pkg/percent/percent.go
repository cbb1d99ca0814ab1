// Package percent holds the decimal percentage helpers shared by the allocation
// engine, the validator and the contract parameter builder.
//
// Percentages stay decimal (0-100) for every intermediate step. Basis points
// are produced only by ToBasisPoints at the contract boundary.
package percent

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

const (
	// Hundred is the target sum of a complete percentage set
	Hundred = 100.0
	// Tolerance is the accepted distance from the target sum
	Tolerance = 0.01
	// BasisPointsPerPercent converts percent to basis points
	BasisPointsPerPercent = 100
	// MaxBasisPoints is 100% expressed in basis points
	MaxBasisPoints = 10000
)

var (
	// ErrEmpty is returned by ParseDecimal for blank input
	ErrEmpty = errors.New("empty decimal")
	// ErrInvalid is returned by ParseDecimal for input that is not a decimal number
	ErrInvalid = errors.New("invalid decimal")
)

// ParseDecimal parses a decimal string strictly.
// Blank input yields ErrEmpty so callers can tell a field being edited from a
// malformed one.
func ParseDecimal(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, ErrEmpty
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, ErrInvalid
	}

	return d.InexactFloat64(), nil
}

// ParseDecimalOrZero parses a decimal string, treating empty or invalid input as 0
func ParseDecimalOrZero(s string) float64 {
	v, err := ParseDecimal(s)
	if err != nil {
		return 0
	}
	return v
}

// IsMalformed reports whether s is non-empty and not a decimal number
func IsMalformed(s string) bool {
	_, err := ParseDecimal(s)
	return errors.Is(err, ErrInvalid)
}

// Sum adds a list of percentages
func Sum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values)
}

// SumStrings parses each value with ParseDecimalOrZero and sums the result
func SumStrings(values []string) float64 {
	parsed := make([]float64, len(values))
	for i, v := range values {
		parsed[i] = ParseDecimalOrZero(v)
	}
	return Sum(parsed)
}

// IsComplete reports whether sum is strictly within tolerance of target
func IsComplete(sum, target, tolerance float64) bool {
	return math.Abs(sum-target) < tolerance
}

// IsHundred reports whether sum is 100 within the default tolerance
func IsHundred(sum float64) bool {
	return IsComplete(sum, Hundred, Tolerance)
}

// ToBasisPoints converts a percentage to basis points, rounding half away from zero.
// The value is rounded on its shortest decimal representation so that
// 33.33 becomes 3333 rather than suffering binary float drift.
func ToBasisPoints(p float64) int64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return decimal.NewFromFloat(p).Shift(2).Round(0).IntPart()
}

// FromBasisPoints converts basis points back to a percentage
func FromBasisPoints(bps int64) float64 {
	return decimal.New(bps, -2).InexactFloat64()
}

// Format renders a percentage as its shortest decimal string ("30", "33.5")
func Format(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return decimal.NewFromFloat(v).String()
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
