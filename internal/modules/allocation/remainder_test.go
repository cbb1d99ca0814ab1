package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemainderPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy RemainderPolicy
		units  []int64
		target int64
		want   []int64
	}{
		{"last absorbs surplus", LastElement{}, []int64{3333, 3333, 3333}, 10000, []int64{3333, 3333, 3334}},
		{"last absorbs deficit", LastElement{}, []int64{5000, 5001}, 10000, []int64{5000, 5000}},
		{"largest absorbs surplus", LargestElement{}, []int64{2000, 5000, 2999}, 10000, []int64{2000, 5001, 2999}},
		{"largest first on ties", LargestElement{}, []int64{3333, 3333, 3333}, 10000, []int64{3334, 3333, 3333}},
		{"proportional single unit", Proportional{}, []int64{5000, 3000, 1999}, 10000, []int64{5001, 3000, 1999}},
		{"proportional spreads", Proportional{}, []int64{1000, 3000, 2998}, 7000, []int64{1000, 3001, 2999}},
		{"proportional deficit", Proportional{}, []int64{5000, 3000, 2001}, 10000, []int64{4999, 3000, 2001}},
		{"proportional skips zero", Proportional{}, []int64{0, 4999, 4999}, 10000, []int64{0, 5000, 5000}},
		{"proportional all zero", Proportional{}, []int64{0, 0}, 10000, []int64{0, 10000}},
		{"proportional weights by size", Proportional{}, []int64{6000, 3000, 1000}, 10010, []int64{6006, 3003, 1001}},
		{"proportional weighted deficit", Proportional{}, []int64{6000, 3000, 1000}, 9990, []int64{5994, 2997, 999}},
		{"already exact", Proportional{}, []int64{2500, 7500}, 10000, []int64{2500, 7500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := append([]int64(nil), tt.units...)
			tt.policy.Apply(units, tt.target)
			assert.Equal(t, tt.want, units)
			assert.Equal(t, tt.target, sumUnits(units))
		})
	}
}

func TestRemainderPolicies_Empty(t *testing.T) {
	for _, p := range []RemainderPolicy{LastElement{}, LargestElement{}, Proportional{}} {
		assert.NotPanics(t, func() { p.Apply(nil, 10000) }, p.Name())
	}
}

func TestCorrectRounding(t *testing.T) {
	t.Run("rounding drift corrected", func(t *testing.T) {
		units := []int64{3333, 3333, 3333, 0}
		assert.True(t, CorrectRounding(units, 10000, LargestElement{}))
		assert.Equal(t, []int64{3334, 3333, 3333, 0}, units)
	})

	t.Run("large drift left alone", func(t *testing.T) {
		units := []int64{3000, 3000, 3000}
		assert.False(t, CorrectRounding(units, 10000, LargestElement{}))
		assert.Equal(t, []int64{3000, 3000, 3000}, units)
	})

	t.Run("exact or no policy", func(t *testing.T) {
		assert.False(t, CorrectRounding([]int64{5000, 5000}, 10000, LastElement{}))
		assert.False(t, CorrectRounding([]int64{3333, 3333, 3333}, 10000, nil))
		assert.False(t, CorrectRounding(nil, 10000, LastElement{}))
	})
}

func TestRemainderPolicyByName(t *testing.T) {
	for _, name := range []string{"", "none", " NONE "} {
		p, err := RemainderPolicyByName(name)
		require.NoError(t, err)
		assert.Nil(t, p)
	}

	for _, name := range []string{RemainderLast, RemainderLargest, RemainderProportional} {
		p, err := RemainderPolicyByName(name)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, name, p.Name())
	}

	_, err := RemainderPolicyByName("random")
	assert.Error(t, err)
}
