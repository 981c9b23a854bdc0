package rating

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine_RejectsNegativeWeights(t *testing.T) {
	w := DefaultWeights
	w.Followers = -1

	_, err := NewEngine(w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "followers")
}

func TestEngine_ComputeIsDeterministic(t *testing.T) {
	e, err := NewEngine(DefaultWeights)
	require.NoError(t, err)

	in := Inputs{
		SolBalance:    1.25,
		EthBalance:    0.4,
		TokenBalance:  15,
		TokenValue:    15,
		SolFees:       15000,
		EthFees:       42000,
		FollowerCount: 120,
	}

	first := e.Compute(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Compute(in))
	}
}

func TestEngine_ComputeWeightedSum(t *testing.T) {
	e, err := NewEngine(Weights{SolBalance: 2, TokenValue: 1, Followers: 0.5})
	require.NoError(t, err)

	got := e.Compute(Inputs{SolBalance: 3, TokenValue: 4, FollowerCount: 10, EthFees: 1000})
	assert.Equal(t, 15.0, got)
}

func TestEngine_ComputeIsMonotonic(t *testing.T) {
	e, err := NewEngine(DefaultWeights)
	require.NoError(t, err)

	base := Inputs{
		SolBalance:    0.5,
		EthBalance:    0.1,
		TokenBalance:  3,
		TokenValue:    3,
		SolFees:       5000,
		EthFees:       21000,
		FollowerCount: 10,
	}

	bumps := []struct {
		name string
		bump func(in *Inputs)
	}{
		{"sol balance", func(in *Inputs) { in.SolBalance += 0.01 }},
		{"eth balance", func(in *Inputs) { in.EthBalance += 0.01 }},
		{"token balance", func(in *Inputs) { in.TokenBalance += 5 }},
		{"token value", func(in *Inputs) { in.TokenValue += 5 }},
		{"sol fees", func(in *Inputs) { in.SolFees += 5000 }},
		{"eth fees", func(in *Inputs) { in.EthFees += 21000 }},
		{"followers", func(in *Inputs) { in.FollowerCount++ }},
	}

	for _, tt := range bumps {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			before := e.Compute(in)
			tt.bump(&in)
			assert.GreaterOrEqual(t, e.Compute(in), before)
		})
	}
}

func TestEngine_ComputeNonFiniteInputs(t *testing.T) {
	e, err := NewEngine(DefaultWeights)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   Inputs
		want func(t *testing.T, got float64)
	}{
		{
			name: "positive infinity saturates",
			in:   Inputs{TokenBalance: math.Inf(1), TokenValue: 1e308},
			want: func(t *testing.T, got float64) {
				assert.Equal(t, math.MaxFloat64, got)
			},
		},
		{
			name: "negative infinity saturates",
			in:   Inputs{TokenBalance: math.Inf(-1)},
			want: func(t *testing.T, got float64) {
				assert.Equal(t, -math.MaxFloat64, got)
			},
		},
		{
			name: "nan counts as zero",
			in:   Inputs{SolBalance: math.NaN(), TokenValue: 4},
			want: func(t *testing.T, got float64) {
				assert.Equal(t, 4.0, got)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got float64
			require.NotPanics(t, func() { got = e.Compute(tt.in) })
			assert.False(t, math.IsInf(got, 0) || math.IsNaN(got))
			tt.want(t, got)
		})
	}
}
