package filters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

type fakeLoader struct {
	txns []contracts.Transaction
	err  error
}

func (f *fakeLoader) LoadTransactions(ctx context.Context) ([]contracts.Transaction, error) {
	return f.txns, f.err
}

func txn(ticker, title string, code contracts.TransactionCode, value, marketCap *float64) contracts.Transaction {
	filed := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return contracts.Transaction{
		Ticker:          ticker,
		InsiderName:     ticker + " insider",
		OfficerTitle:    title,
		TradeDate:       filed.AddDate(0, 0, -2),
		FilingDate:      filed,
		TransactionCode: code,
		Shares:          1000,
		TotalValue:      value,
		MarketCapUSD:    marketCap,
	}
}

func ptr(v float64) *float64 { return &v }

func newTestFilter(mutate func(*signalconfig.Config), loader contracts.TransactionLoader) *Filter {
	cfg := signalconfig.Default()
	cfg.Filtering.MinTradeValue = 100_000
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, nil, loader, logger.Nop())
}

func TestApply_SingleCEOPurchase(t *testing.T) {
	f := newTestFilter(nil, nil)

	signals, stats := f.Apply([]contracts.Transaction{
		txn("ABC", "CEO", contracts.CodePurchase, ptr(150_000), nil),
	})

	require.Len(t, signals, 1)
	assert.Equal(t, 1.0, signals[0].ExecutiveWeight)
	assert.Nil(t, signals[0].TradePctOfMarketCap)
	assert.Equal(t, 1, stats.FinalFiltered)
	assert.Equal(t, 1, stats.MissingMarketCap)
}

func TestApply_StagesAndCounters(t *testing.T) {
	f := newTestFilter(nil, nil)

	input := []contracts.Transaction{
		txn("AAA", "CEO", contracts.CodePurchase, ptr(500_000), ptr(1e9)),
		txn("BBB", "CFO", contracts.CodeSale, ptr(500_000), nil),    // stage 1
		txn("CCC", "CEO", contracts.CodePurchase, nil, nil),         // stage 2, missing value
		txn("DDD", "CEO", contracts.CodePurchase, ptr(99_999), nil), // stage 2
		txn("EEE", "", contracts.CodePurchase, ptr(200_000), nil),   // stage 3
		txn("FFF", "Director", contracts.CodePurchase, ptr(100_000), nil),
	}

	signals, stats := f.Apply(input)

	assert.Equal(t, Stats{
		TotalInput:         6,
		Stage1Purchases:    5,
		Stage2MinValue:     3,
		Stage3Executive:    2,
		Stage4MarketCapPct: 2,
		FinalFiltered:      2,
		MissingMarketCap:   1,
		MissingTotalValue:  1,
	}, stats)

	require.Len(t, signals, 2)
	assert.Equal(t, "AAA", signals[0].Ticker, "input order preserved")
	assert.Equal(t, "FFF", signals[1].Ticker)
	require.NotNil(t, signals[0].TradePctOfMarketCap)
	assert.InDelta(t, 0.0005, *signals[0].TradePctOfMarketCap, 1e-12)

	funnel := stats.Stages()
	for i := 1; i < len(funnel); i++ {
		assert.LessOrEqual(t, funnel[i].Count, funnel[i-1].Count, "stage %s", funnel[i].Name)
	}
}

func TestApply_MarketCapPctStage(t *testing.T) {
	f := newTestFilter(func(c *signalconfig.Config) {
		c.Filtering.MinMarketCapPct = 0.0001
	}, nil)

	signals, stats := f.Apply([]contracts.Transaction{
		txn("BIG", "CEO", contracts.CodePurchase, ptr(150_000), ptr(1e10)),  // 0.000015 → drop
		txn("SMALL", "CEO", contracts.CodePurchase, ptr(150_000), ptr(1e9)), // 0.00015 → keep
		txn("NOCAP", "CEO", contracts.CodePurchase, ptr(150_000), nil),      // unknown → keep
		txn("ZERO", "CEO", contracts.CodePurchase, ptr(150_000), ptr(0)),    // unknown → keep
	})

	require.Len(t, signals, 3)
	assert.Equal(t, "SMALL", signals[0].Ticker)
	assert.Equal(t, "NOCAP", signals[1].Ticker)
	assert.Equal(t, "ZERO", signals[2].Ticker)
	assert.Nil(t, signals[1].TradePctOfMarketCap)
	assert.Nil(t, signals[2].TradePctOfMarketCap)
	assert.Equal(t, 3, stats.Stage4MarketCapPct)
	assert.Equal(t, 2, stats.MissingMarketCap)
}

func TestApply_MaxMarketCapExclusion(t *testing.T) {
	billions := 100.0
	f := newTestFilter(func(c *signalconfig.Config) {
		c.Filtering.MaxMarketCapBillions = &billions
	}, nil)

	signals, stats := f.Apply([]contracts.Transaction{
		txn("MEGA", "CEO", contracts.CodePurchase, ptr(1e6), ptr(2e12)),
		txn("MID", "CEO", contracts.CodePurchase, ptr(1e6), ptr(5e10)),
		txn("NOCAP", "CEO", contracts.CodePurchase, ptr(1e6), nil),
	})

	require.Len(t, signals, 2)
	assert.Equal(t, "MID", signals[0].Ticker)
	assert.Equal(t, "NOCAP", signals[1].Ticker)
	assert.Equal(t, 3, stats.Stage4MarketCapPct)
	assert.Equal(t, 2, stats.FinalFiltered)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	f := newTestFilter(nil, nil)
	input := []contracts.Transaction{
		txn("AAA", "CEO", contracts.CodePurchase, ptr(500_000), ptr(1e9)),
	}
	before := input[0]

	_, _ = f.Apply(input)
	assert.Equal(t, before, input[0])
}

func TestApply_Empty(t *testing.T) {
	f := newTestFilter(nil, nil)
	signals, stats := f.Apply(nil)
	assert.Empty(t, signals)
	assert.Equal(t, Stats{}, stats)
}

func TestFilterTransactions(t *testing.T) {
	loader := &fakeLoader{txns: []contracts.Transaction{
		txn("AAA", "CEO", contracts.CodePurchase, ptr(500_000), nil),
	}}
	f := newTestFilter(nil, loader)

	signals, stats, err := f.FilterTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, signals, 1)
	assert.Equal(t, 1, stats.TotalInput)

	loader.err = errors.New("db down")
	_, _, err = f.FilterTransactions(context.Background())
	assert.ErrorContains(t, err, "db down")

	_, _, err = newTestFilter(nil, nil).FilterTransactions(context.Background())
	assert.Error(t, err)
}
