package allocation

import (
	"fmt"
	"sort"
	"strings"
)

// RemainderPolicy decides which elements absorb the rounding remainder when a
// set of integer units (hundredths of a percent, basis points) must sum to an
// exact target.
type RemainderPolicy interface {
	Name() string
	// Apply adjusts units in place so that their sum equals target
	Apply(units []int64, target int64)
}

// Remainder policy names accepted by RemainderPolicyByName
const (
	RemainderNone         = "none"
	RemainderLast         = "last"
	RemainderLargest      = "largest"
	RemainderProportional = "proportional"
)

// LastElement gives the whole remainder to the last element
type LastElement struct{}

func (LastElement) Name() string { return RemainderLast }

func (LastElement) Apply(units []int64, target int64) {
	if len(units) == 0 {
		return
	}
	units[len(units)-1] += target - sumUnits(units)
}

// LargestElement gives the whole remainder to the largest element (first on ties)
type LargestElement struct{}

func (LargestElement) Name() string { return RemainderLargest }

func (LargestElement) Apply(units []int64, target int64) {
	if len(units) == 0 {
		return
	}
	maxIdx := 0
	for i, u := range units {
		if u > units[maxIdx] {
			maxIdx = i
		}
	}
	units[maxIdx] += target - sumUnits(units)
}

// Proportional splits the remainder across the non-zero elements in proportion
// to their size. Leftover units after the integer split go to the largest
// fractional parts (larger element, then lower index on ties).
type Proportional struct{}

func (Proportional) Name() string { return RemainderProportional }

func (Proportional) Apply(units []int64, target int64) {
	diff := target - sumUnits(units)
	if diff == 0 || len(units) == 0 {
		return
	}

	var base int64
	order := make([]int, 0, len(units))
	for i, u := range units {
		if u > 0 {
			base += u
			order = append(order, i)
		}
	}
	if base == 0 || target < 0 {
		LastElement{}.Apply(units, target)
		return
	}

	sign := int64(1)
	magnitude := diff
	if diff < 0 {
		sign = -1
		magnitude = -diff
	}

	rems := make([]int64, len(units))
	left := magnitude
	for _, i := range order {
		share := magnitude * units[i] / base
		rems[i] = magnitude * units[i] % base
		units[i] += sign * share
		left -= share
	}

	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if rems[ia] != rems[ib] {
			return rems[ia] > rems[ib]
		}
		return units[ia] > units[ib]
	})
	for _, i := range order {
		if left == 0 {
			break
		}
		if sign < 0 && units[i] == 0 {
			continue
		}
		units[i] += sign
		left--
	}
	if left > 0 {
		LastElement{}.Apply(units, target)
	}
}

// CorrectRounding applies policy when the distance between units and target is
// explainable by per-entry rounding (at most half a unit each, plus one). It
// reports whether units were changed.
func CorrectRounding(units []int64, target int64, policy RemainderPolicy) bool {
	if policy == nil || len(units) == 0 {
		return false
	}
	drift := sumUnits(units) - target
	if drift < 0 {
		drift = -drift
	}
	if drift == 0 || drift > int64(len(units))/2+1 {
		return false
	}
	policy.Apply(units, target)
	return true
}

// RemainderPolicyByName resolves a policy. "none" and "" yield nil, meaning no
// redistribution.
func RemainderPolicyByName(name string) (RemainderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", RemainderNone:
		return nil, nil
	case RemainderLast:
		return LastElement{}, nil
	case RemainderLargest:
		return LargestElement{}, nil
	case RemainderProportional:
		return Proportional{}, nil
	default:
		return nil, fmt.Errorf("unknown remainder policy %q", name)
	}
}

func sumUnits(units []int64) int64 {
	var total int64
	for _, u := range units {
		total += u
	}
	return total
}
