package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

func ranked(scores ...float64) []contracts.Signal {
	out := make([]contracts.Signal, len(scores))
	for i, s := range scores {
		out[i] = contracts.Signal{
			Transaction:    contracts.Transaction{Ticker: string(rune('A' + i))},
			CompositeScore: s,
			IsActionable:   s >= 2.0,
		}
	}
	return out
}

func tickers(signals []contracts.Signal) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = s.Ticker
	}
	return out
}

func TestReport_Accessors(t *testing.T) {
	r := &Report{Signals: ranked(5, 3, 2, 1.5, 0.5)}

	assert.Equal(t, 5, r.TotalSignals())
	assert.Equal(t, 3, r.ActionableSignals())
	assert.Equal(t, []string{"A", "B"}, tickers(r.TopSignals(2)))
	assert.Len(t, r.TopSignals(50), 5)
	assert.Empty(t, r.TopSignals(-1))
	assert.Equal(t, []string{"A", "B", "C"}, tickers(r.ActionableOnly()))
}

func TestReport_ByCategory(t *testing.T) {
	signals := ranked(8, 6, 1)
	signals[0].Category = contracts.CategoryStrongBuy
	signals[1].Category = contracts.CategoryWatch
	signals[2].Category = contracts.CategoryIgnore

	groups := (&Report{Signals: signals}).ByCategory()
	assert.Len(t, groups[contracts.CategoryStrongBuy], 1)
	assert.Len(t, groups[contracts.CategoryWatch], 1)
	assert.Len(t, groups[contracts.CategoryIgnore], 1)
	assert.Empty(t, groups[contracts.CategoryWeak])
}

func TestFilterOptions_Apply(t *testing.T) {
	floor := 1.0

	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"no options", FilterOptions{}, []string{"A", "B", "C", "D", "E"}},
		{"min score", FilterOptions{MinScore: &floor}, []string{"A", "B", "C", "D"}},
		{"actionable only", FilterOptions{ActionableOnly: true}, []string{"A", "B", "C"}},
		{"top n", FilterOptions{TopN: 2}, []string{"A", "B"}},
		{"filters apply before truncation", FilterOptions{MinScore: &floor, ActionableOnly: true, TopN: 4}, []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tickers(tt.opts.Apply(ranked(5, 3, 2, 1.5, 0.5))))
		})
	}
}
