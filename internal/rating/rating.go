// Package rating derives the user score from on-chain and social signals.
package rating

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Weights are per-input multipliers. They must be non-negative so that the
// score never drops when an input grows.
type Weights struct {
	SolBalance   float64 `mapstructure:"solBalance"`
	EthBalance   float64 `mapstructure:"ethBalance"`
	TokenBalance float64 `mapstructure:"tokenBalance"`
	TokenValue   float64 `mapstructure:"tokenValue"`
	SolFees      float64 `mapstructure:"solFees"`
	EthFees      float64 `mapstructure:"ethFees"`
	Followers    float64 `mapstructure:"followers"`
}

var DefaultWeights = Weights{
	SolBalance:   10,
	EthBalance:   25,
	TokenBalance: 1,
	TokenValue:   1,
	SolFees:      0.000001,
	EthFees:      0.00001,
	Followers:    0.5,
}

func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"solBalance":   w.SolBalance,
		"ethBalance":   w.EthBalance,
		"tokenBalance": w.TokenBalance,
		"tokenValue":   w.TokenValue,
		"solFees":      w.SolFees,
		"ethFees":      w.EthFees,
		"followers":    w.Followers,
	} {
		if v < 0 {
			return fmt.Errorf("rating weight %s must be non-negative, got %v", name, v)
		}
	}
	return nil
}

type Inputs struct {
	SolBalance    float64
	EthBalance    float64
	TokenBalance  float64
	TokenValue    float64
	SolFees       float64
	EthFees       float64
	FollowerCount int64
}

type Engine struct {
	weights Weights
}

func NewEngine(w Weights) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: w}, nil
}

// Compute returns the rating for in. It has no side effects and is called
// again whenever any input changes; a stored rating is never reused.
func (e *Engine) Compute(in Inputs) float64 {
	terms := []struct {
		value  float64
		weight float64
	}{
		{in.SolBalance, e.weights.SolBalance},
		{in.EthBalance, e.weights.EthBalance},
		{in.TokenBalance, e.weights.TokenBalance},
		{in.TokenValue, e.weights.TokenValue},
		{in.SolFees, e.weights.SolFees},
		{in.EthFees, e.weights.EthFees},
		{float64(in.FollowerCount), e.weights.Followers},
	}

	sum := decimal.Zero
	for _, t := range terms {
		sum = sum.Add(decimal.NewFromFloat(bounded(t.value)).Mul(decimal.NewFromFloat(bounded(t.weight))))
	}

	score, _ := sum.Round(6).Float64()
	return bounded(score)
}

// bounded maps NaN to zero and saturates infinities at the largest finite
// float, which decimal can represent.
func bounded(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}
