package allocation

import (
	"fmt"
	"sort"

	"github.com/aristath/distributor/pkg/percent"
	"gonum.org/v1/gonum/floats"
)

// hundredths is 100% expressed in hundredths of a percent
const hundredths = 10000

// Preset names
const (
	PresetDirect   = "direct"
	PresetEven     = "even"
	PresetBalanced = "balanced"
	PresetYield    = "yield"
)

// DefaultPreset is applied to every new wallet group
const DefaultPreset = PresetBalanced

// Presets maps preset names to their positional strategy percentages.
// A nil value means an even split.
var Presets = map[string][]float64{
	PresetDirect:   {100},
	PresetEven:     nil,
	PresetBalanced: {60, 30, 10, 0},
	PresetYield:    {0, 50, 50, 0},
}

// PresetNames returns the preset catalogue in sorted order
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EvenSplit divides 100% into n parts of floor(10000/n)/100 percent; the policy
// places the remainder (LastElement when nil).
func EvenSplit(n int, policy RemainderPolicy) []float64 {
	if n <= 0 {
		return nil
	}
	if policy == nil {
		policy = LastElement{}
	}

	units := make([]int64, n)
	each := int64(hundredths / n)
	for i := range units {
		units[i] = each
	}
	policy.Apply(units, hundredths)

	values := make([]float64, n)
	for i, u := range units {
		values[i] = percent.FromBasisPoints(u)
	}
	return values
}

// EvenSplitStrategies splits a wallet evenly over every strategy
func EvenSplitStrategies() []StrategyAllocation {
	return strategiesFromValues(EvenSplit(StrategyCount, nil))
}

// FixedPreset assigns values positionally in strategy code order; positions
// past the end of values get 0.
func FixedPreset(values ...float64) []StrategyAllocation {
	full := make([]float64, StrategyCount)
	copy(full, values)
	return strategiesFromValues(full)
}

// ApplyPreset returns the strategy split for a named preset
func ApplyPreset(name string) ([]StrategyAllocation, error) {
	values, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	if values == nil {
		return EvenSplitStrategies(), nil
	}
	return FixedPreset(values...), nil
}

// Normalize rescales strategy percentages to sum to 100 while keeping their
// proportions. A non-positive sum falls back to an even split. The result
// always holds one entry per strategy in code order.
func Normalize(strategies []StrategyAllocation) []StrategyAllocation {
	subs := SubPercents(strategies)
	values := subs[:]

	total := percent.Sum(values)
	if total <= 0 {
		return EvenSplitStrategies()
	}

	scaled := make([]float64, len(values))
	copy(scaled, values)
	floats.Scale(percent.Hundred/total, scaled)
	return strategiesFromValues(scaled)
}

// EvenSplitWallets returns a copy of groups with every share set evenly.
// Amount-based groups are switched to percentage mode.
func EvenSplitWallets(groups []WalletGroup) []WalletGroup {
	shares := EvenSplit(len(groups), nil)
	out := CloneGroups(groups)
	for i := range out {
		out[i].SharePercent = percent.Format(shares[i])
		out[i].WalletAmount = ""
	}
	return out
}

// NormalizeWallets rescales wallet shares so they sum to 100, falling back to
// an even split when the shares sum to zero or less.
func NormalizeWallets(groups []WalletGroup, totalAmount float64) []WalletGroup {
	shares := EffectiveShares(groups, totalAmount)
	total := percent.Sum(shares)
	if total <= 0 {
		return EvenSplitWallets(groups)
	}

	floats.Scale(percent.Hundred/total, shares)
	out := CloneGroups(groups)
	for i := range out {
		out[i].SharePercent = percent.Format(shares[i])
		out[i].WalletAmount = ""
	}
	return out
}

func strategiesFromValues(values []float64) []StrategyAllocation {
	out := make([]StrategyAllocation, StrategyCount)
	for _, strategy := range AllStrategies {
		var v float64
		if int(strategy) < len(values) {
			v = values[strategy]
		}
		out[strategy] = StrategyAllocation{
			Strategy:   strategy,
			SubPercent: percent.Format(v),
		}
	}
	return out
}
