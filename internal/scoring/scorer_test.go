package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

func newTestScorer(minScore float64) *Scorer {
	cfg := signalconfig.Default()
	cfg.DollarWeight = signalconfig.DollarWeight{BaseAmount: 100_000, LogMultiplier: 0.5}
	cfg.MarketCapWeight = signalconfig.MarketCapWeight{
		BaselinePct:   0.00001,
		LogMultiplier: 0.5,
		MinWeight:     0.5,
		MaxWeight:     3.0,
	}
	cfg.Scoring.MinSignalScore = minScore
	return NewScorer(cfg, logger.Nop())
}

func signal(ticker string, exec, value, cluster float64, pct *float64) contracts.Signal {
	s := contracts.NewSignal(contracts.Transaction{
		Ticker:     ticker,
		TotalValue: contracts.Float64Ptr(value),
	})
	s.ExecutiveWeight = exec
	s.ClusterWeight = cluster
	s.TradePctOfMarketCap = pct
	return s
}

func TestDollarWeight(t *testing.T) {
	s := newTestScorer(0)

	tests := []struct {
		value float64
		want  float64
	}{
		{0, 1.0},
		{-5, 1.0},
		{50_000, 1.0},
		{100_000, 1.0},
		{1_000_000, 1.5},
		{10_000_000, 2.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, s.DollarWeight(tt.value), 1e-12, "value=%v", tt.value)
	}

	prev := 1.0
	for v := 100_000.0; v < 1e9; v *= 1.7 {
		w := s.DollarWeight(v)
		assert.GreaterOrEqual(t, w, prev, "monotone at %v", v)
		prev = w
	}
}

func TestMarketCapWeight(t *testing.T) {
	s := newTestScorer(0)

	tests := []struct {
		name string
		pct  *float64
		want float64
	}{
		{"unknown is neutral", nil, 1.0},
		{"zero is neutral", contracts.Float64Ptr(0), 1.0},
		{"negative is neutral", contracts.Float64Ptr(-0.1), 1.0},
		{"at baseline", contracts.Float64Ptr(0.00001), 1.0},
		{"10x baseline", contracts.Float64Ptr(0.0001), 1.5},
		{"clamped high", contracts.Float64Ptr(0.5), 3.0},
		{"clamped low", contracts.Float64Ptr(1e-9), 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.MarketCapWeight(tt.pct), 1e-12)
		})
	}

	for _, p := range []float64{1e-12, 1e-8, 1e-6, 1e-4, 1e-2, 1, 100} {
		w := s.MarketCapWeight(&p)
		assert.GreaterOrEqual(t, w, 0.5)
		assert.LessOrEqual(t, w, 3.0)
	}
}

func TestScore_CompositeIsProduct(t *testing.T) {
	s := newTestScorer(2.0)

	scored := s.Score(signal("ABC", 1.0, 1_000_000, 1.3, contracts.Float64Ptr(0.0001)))

	assert.InDelta(t, 1.5, scored.DollarWeight, 1e-12)
	assert.InDelta(t, 1.5, scored.MarketCapWeight, 1e-12)
	want := scored.ExecutiveWeight * scored.DollarWeight * scored.ClusterWeight * scored.MarketCapWeight
	assert.InDelta(t, want, scored.CompositeScore, 1e-12)
	assert.InDelta(t, 2.925, scored.CompositeScore, 1e-9)
	assert.True(t, scored.IsActionable)
	assert.Empty(t, scored.Category, "category comes from the alert score")
}

func TestScore_ActionableThreshold(t *testing.T) {
	s := newTestScorer(1.0)

	atThreshold := s.Score(signal("A", 1.0, 100_000, 1.0, nil))
	below := s.Score(signal("B", 0.5, 100_000, 1.0, nil))

	assert.Equal(t, 1.0, atThreshold.CompositeScore)
	assert.True(t, atThreshold.IsActionable)
	assert.False(t, below.IsActionable)
}

func TestScoreAll_SortedDescendingStable(t *testing.T) {
	s := newTestScorer(0)

	in := []contracts.Signal{
		signal("LOW", 0.3, 100_000, 1.0, nil),
		signal("TIE1", 1.0, 100_000, 1.0, nil),
		signal("HIGH", 1.0, 10_000_000, 2.0, nil),
		signal("TIE2", 1.0, 100_000, 1.0, nil),
	}

	out := s.ScoreAll(in)
	require.Len(t, out, 4)

	tickers := []string{out[0].Ticker, out[1].Ticker, out[2].Ticker, out[3].Ticker}
	assert.Equal(t, []string{"HIGH", "TIE1", "TIE2", "LOW"}, tickers)
	assert.Zero(t, in[0].CompositeScore, "input not mutated")
}

func TestScore_MinimalScenario(t *testing.T) {
	s := newTestScorer(0)

	out := s.ScoreAll([]contracts.Signal{signal("ABC", 1.0, 150_000, 1.0, nil)})
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, out[0].ExecutiveWeight)
	assert.Greater(t, out[0].DollarWeight, 1.0)
	assert.True(t, out[0].IsActionable)
}

func TestSummarize(t *testing.T) {
	s := newTestScorer(1.5)
	out := s.ScoreAll([]contracts.Signal{
		signal("A", 1.0, 100_000, 2.0, nil), // 2.0
		signal("B", 1.0, 100_000, 1.0, nil), // 1.0
	})

	summary := Summarize(out)
	assert.Equal(t, 2, summary.TotalSignals)
	assert.Equal(t, 1, summary.ActionableSignals)
	assert.InDelta(t, 1.5, summary.AvgScore, 1e-12)
	assert.Equal(t, 2.0, summary.MaxScore)
	assert.Equal(t, 1.0, summary.MinScore)

	empty := Summarize(nil)
	assert.Equal(t, Summary{}, empty)
	assert.False(t, math.IsInf(empty.MaxScore, 0))
}
