package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonteCarlo_TooFewReturns(t *testing.T) {
	mc := NewMonteCarlo(DefaultMonteCarloConfig())
	assert.Nil(t, mc.Simulate(nil))
	assert.Nil(t, mc.Simulate([]float64{0.1}))
}

func TestMonteCarlo_ConstantReturns(t *testing.T) {
	r := NewMonteCarlo(MonteCarloConfig{Simulations: 200, Seed: 7}).Simulate([]float64{0.1, 0.1, 0.1})
	require.NotNil(t, r)

	assert.Equal(t, 200, r.Simulations)
	assert.InDelta(t, 0.1, r.MeanReturn, 1e-12)
	assert.InDelta(t, 0.0, r.StdDev, 1e-12)
	assert.InDelta(t, 0.1, r.P5, 1e-12)
	assert.InDelta(t, 0.1, r.P95, 1e-12)
	assert.Zero(t, r.ProbLoss)
}

func TestMonteCarlo_Distribution(t *testing.T) {
	returns := []float64{0.12, -0.05, 0.03, 0.08, -0.02, 0.15, -0.10, 0.04}
	mc := NewMonteCarlo(MonteCarloConfig{Seed: 42})

	r := mc.Simulate(returns)
	require.NotNil(t, r)

	assert.Equal(t, DefaultMonteCarloConfig().Simulations, r.Simulations, "zero simulations fall back to the default")
	assert.LessOrEqual(t, r.P5, r.P50)
	assert.LessOrEqual(t, r.P50, r.P95)
	assert.GreaterOrEqual(t, r.P5, -0.10)
	assert.LessOrEqual(t, r.P95, 0.15)
	assert.InDelta(t, Mean(returns), r.MeanReturn, 0.01)
	assert.Greater(t, r.ProbLoss, 0.0)
	assert.Less(t, r.ProbLoss, 0.5)

	assert.Equal(t, r, mc.Simulate(returns), "same seed gives the same result")
}
