package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTransactionCode(t *testing.T) {
	tests := []struct {
		raw  string
		want TransactionCode
	}{
		{"P - Purchase", CodePurchase},
		{"S - Sale", CodeSale},
		{"s", CodeSale},
		{"  M - Exercise ", CodeExercise},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTransactionCode(tt.raw))
		})
	}
}

func TestTransaction_ValueAndMarketCap(t *testing.T) {
	txn := Transaction{Ticker: "ABC"}
	assert.Zero(t, txn.Value())
	assert.False(t, txn.HasMarketCap())

	txn.TotalValue = Float64Ptr(150_000)
	txn.MarketCapUSD = Float64Ptr(0)
	assert.Equal(t, 150_000.0, txn.Value())
	assert.False(t, txn.HasMarketCap(), "zero market cap is treated as unknown")

	txn.MarketCapUSD = Float64Ptr(1e9)
	assert.True(t, txn.HasMarketCap())
}

func TestSignal_TradeSignal(t *testing.T) {
	filed := time.Date(2024, 3, 1, 16, 30, 0, 0, time.UTC)
	sig := NewSignal(Transaction{
		Ticker:       "XYZ",
		InsiderName:  "Jane Doe",
		OfficerTitle: "CEO",
		FilingDate:   filed,
		TradeDate:    filed.AddDate(0, 0, -2),
		TotalValue:   Float64Ptr(250_000),
	})
	sig.CompositeScore = 2.5
	sig.ClusterSize = 3

	ts := sig.TradeSignal()
	assert.Equal(t, "XYZ", ts.Ticker)
	assert.Equal(t, filed, ts.FilingDate)
	assert.Equal(t, 250_000.0, ts.TotalValue)
	assert.Equal(t, 2.5, ts.CompositeScore)
	assert.Equal(t, 3, ts.ClusterSize)

	assert.Len(t, TradeSignals([]Signal{sig, sig}), 2)
}

func TestNewSignal_NeutralWeights(t *testing.T) {
	sig := NewSignal(Transaction{Ticker: "ABC"})
	assert.Equal(t, 1.0, sig.DollarWeight)
	assert.Equal(t, 1.0, sig.ClusterWeight)
	assert.Equal(t, 1.0, sig.MarketCapWeight)
	assert.Nil(t, sig.TradePctOfMarketCap)
}

func TestCategoryCutoffs_Categorize(t *testing.T) {
	cutoffs := CategoryCutoffs{Weak: 3, Watch: 5, StrongBuy: 7}

	tests := []struct {
		score float64
		want  ThresholdCategory
	}{
		{0, CategoryIgnore},
		{2.99, CategoryIgnore},
		{3, CategoryWeak},
		{4.5, CategoryWeak},
		{5, CategoryWatch},
		{6.9, CategoryWatch},
		{7, CategoryStrongBuy},
		{12, CategoryStrongBuy},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cutoffs.Categorize(tt.score), "score=%v", tt.score)
	}
}

func TestInsiderPerformance_WinRate(t *testing.T) {
	perf := &InsiderPerformance{
		WinRate1W: Float64Ptr(0.4),
		WinRate1M: Float64Ptr(0.5),
		WinRate3M: Float64Ptr(0.6),
	}

	assert.Equal(t, 0.4, *perf.WinRate("1w"))
	assert.Equal(t, 0.5, *perf.WinRate("1m"))
	assert.Equal(t, 0.6, *perf.WinRate("3m"))
	assert.Nil(t, perf.WinRate("6m"))
	assert.Nil(t, perf.WinRate("2y"))
}

func TestPriceBar_Get(t *testing.T) {
	bar := PriceBar{Open: 1, High: 2, Low: 0.5, Close: 1.5}
	assert.Equal(t, 1.0, bar.Get(FieldOpen))
	assert.Equal(t, 2.0, bar.Get(FieldHigh))
	assert.Equal(t, 0.5, bar.Get(FieldLow))
	assert.Equal(t, 1.5, bar.Get(FieldClose))
	assert.Equal(t, 1.5, bar.Get("adj"))
}

func TestDay(t *testing.T) {
	in := time.Date(2024, 1, 5, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestAllStages(t *testing.T) {
	stages := AllStages()
	assert.Equal(t, StageCollect, stages[0])
	assert.Equal(t, StageBacktest, stages[len(stages)-1])
	assert.Equal(t, "FILTER", StageFilter.String())
}
