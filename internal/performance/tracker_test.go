package performance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossww/open-insider-trader/internal/backtest"
	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeInsiders struct {
	insiders map[int64]*contracts.Insider
	sells    map[int64]int
	minAsked int
}

func (f *fakeInsiders) GetInsider(ctx context.Context, id int64) (*contracts.Insider, error) {
	return f.insiders[id], nil
}

func (f *fakeInsiders) InsidersWithMinPurchases(ctx context.Context, minTrades int) ([]contracts.Insider, error) {
	f.minAsked = minTrades
	out := make([]contracts.Insider, 0, len(f.insiders))
	for _, id := range []int64{1, 2, 3} {
		if ins, ok := f.insiders[id]; ok {
			out = append(out, *ins)
		}
	}
	return out, nil
}

func (f *fakeInsiders) CountTransactions(ctx context.Context, insiderID int64, code contracts.TransactionCode) (int, error) {
	return f.sells[insiderID], nil
}

type fakeTxns struct {
	byInsider map[int64][]contracts.Transaction
	queries   []contracts.TransactionQuery
}

func (f *fakeTxns) ListTransactions(ctx context.Context, q contracts.TransactionQuery) ([]contracts.Transaction, error) {
	f.queries = append(f.queries, q)
	return f.byInsider[q.InsiderID], nil
}

type fakeStore struct {
	rows  map[int64]*contracts.InsiderPerformance
	saves int
}

func (f *fakeStore) GetPerformance(ctx context.Context, insiderID int64) (*contracts.InsiderPerformance, error) {
	return f.rows[insiderID], nil
}

func (f *fakeStore) SavePerformance(ctx context.Context, perf *contracts.InsiderPerformance) error {
	f.saves++
	f.rows[perf.InsiderID] = perf
	return nil
}

// fakeEngine returns a canned result per holding period
type fakeEngine struct {
	results map[int]*backtest.Result
	alpha   map[int]float64
	signals []contracts.TradeSignal
}

func (f *fakeEngine) BacktestSignals(ctx context.Context, signals []contracts.TradeSignal, holdingDays int) *backtest.Result {
	f.signals = signals
	if r, ok := f.results[holdingDays]; ok {
		copied := *r
		return &copied
	}
	return &backtest.Result{HoldingPeriodDays: holdingDays}
}

func (f *fakeEngine) AddBenchmarkComparison(ctx context.Context, result *backtest.Result) *backtest.Result {
	if a, ok := f.alpha[result.HoldingPeriodDays]; ok {
		result.Alpha = &a
	}
	return result
}

func buys(n int) []contracts.Transaction {
	out := make([]contracts.Transaction, n)
	for i := range out {
		out[i] = contracts.Transaction{
			Ticker:          "ABC",
			FilingDate:      time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC),
			TransactionCode: contracts.CodePurchase,
			TotalValue:      contracts.Float64Ptr(100000),
		}
	}
	return out
}

type fixture struct {
	insiders *fakeInsiders
	txns     *fakeTxns
	store    *fakeStore
	engine   *fakeEngine
	now      time.Time
}

func newFixture() *fixture {
	return &fixture{
		insiders: &fakeInsiders{
			insiders: map[int64]*contracts.Insider{
				1: {ID: 1, Name: "Jane Doe", CompanyID: 10, OfficerTitle: "CEO"},
				2: {ID: 2, Name: "John Roe", CompanyID: 20},
			},
			sells: map[int64]int{1: 2},
		},
		txns:  &fakeTxns{byInsider: map[int64][]contracts.Transaction{1: buys(3), 2: buys(4)}},
		store: &fakeStore{rows: map[int64]*contracts.InsiderPerformance{}},
		engine: &fakeEngine{
			results: map[int]*backtest.Result{
				5:   {HoldingPeriodDays: 5, TotalTrades: 3, WinRate: 1.0 / 3, AvgNetReturn: 0.01},
				21:  {HoldingPeriodDays: 21, TotalTrades: 3, WinRate: 2.0 / 3, AvgNetReturn: 0.03},
				63:  {HoldingPeriodDays: 63, TotalTrades: 3, WinRate: 1, AvgNetReturn: 0.08},
				126: {HoldingPeriodDays: 126, TotalTrades: 2, WinRate: 0.5, AvgNetReturn: 0.05},
			},
			alpha: map[int]float64{21: 0.01, 63: 0.04},
		},
		now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) tracker() *Tracker {
	return NewTracker(f.insiders, f.txns, f.store, f.engine, logger.Nop(), WithClock(func() time.Time { return f.now }))
}

// =============================================================================
// Tests
// =============================================================================

func TestPeriodName(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{5, "1w"},
		{21, "1m"},
		{63, "3m"},
		{126, "6m"},
		{10, "10d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PeriodName(tt.days))
	}
}

func TestCalculate(t *testing.T) {
	f := newFixture()

	perf, err := f.tracker().Calculate(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, int64(1), perf.InsiderID)
	assert.Equal(t, int64(10), perf.CompanyID)
	assert.InDelta(t, 1.0/3, *perf.WinRate1W, 1e-12)
	assert.InDelta(t, 2.0/3, *perf.WinRate1M, 1e-12)
	assert.InDelta(t, 1.0, *perf.WinRate3M, 1e-12)
	assert.InDelta(t, 0.5, *perf.WinRate6M, 1e-12)
	require.NotNil(t, perf.AvgReturn)
	assert.InDelta(t, 0.08, *perf.AvgReturn, 1e-12)
	require.NotNil(t, perf.AlphaVsSPY)
	assert.InDelta(t, 0.04, *perf.AlphaVsSPY, 1e-12)
	assert.Equal(t, 3, perf.TotalBuys)
	assert.Equal(t, 2, perf.TotalSells)

	require.Len(t, f.txns.queries, 1)
	assert.Equal(t, contracts.CodePurchase, f.txns.queries[0].Code)

	require.Len(t, f.engine.signals, 3)
	assert.Equal(t, "Jane Doe", f.engine.signals[0].InsiderName)
	assert.Equal(t, "CEO", f.engine.signals[0].OfficerTitle)
	assert.Equal(t, 1, f.engine.signals[0].ClusterSize)
	assert.Zero(t, f.engine.signals[0].CompositeScore)
}

func TestCalculate_PrimaryPeriodFallback(t *testing.T) {
	f := newFixture()
	delete(f.engine.results, 63)

	perf, err := f.tracker().Calculate(context.Background(), 1)
	require.NoError(t, err)

	assert.Nil(t, perf.WinRate3M)
	assert.InDelta(t, 0.03, *perf.AvgReturn, 1e-12, "falls back to 1m")
	assert.InDelta(t, 0.01, *perf.AlphaVsSPY, 1e-12)

	delete(f.engine.results, 21)
	perf, err = f.tracker().Calculate(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, *perf.AvgReturn, 1e-12, "then 6m")
	assert.Nil(t, perf.AlphaVsSPY)
}

func TestCalculate_Errors(t *testing.T) {
	f := newFixture()
	tr := f.tracker()

	_, err := tr.Calculate(context.Background(), 99)
	assert.ErrorIs(t, err, ErrInsiderNotFound)

	f.txns.byInsider[1] = nil
	_, err = tr.Calculate(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoPurchases)

	f.txns.byInsider[1] = buys(3)
	f.engine.results = nil
	_, err = tr.Calculate(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestUpdate_SkipsRecentUnlessForced(t *testing.T) {
	f := newFixture()
	recent := f.now.Add(-3 * 24 * time.Hour)
	f.store.rows[1] = &contracts.InsiderPerformance{InsiderID: 1, LastCalculatedAt: &recent}
	tr := f.tracker()

	updated, err := tr.Update(context.Background(), 1, false)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Zero(t, f.store.saves)

	updated, err = tr.Update(context.Background(), 1, true)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, 1, f.store.saves)
	assert.Equal(t, f.now, *f.store.rows[1].LastCalculatedAt)
}

func TestUpdate_StaleRowIsRecalculated(t *testing.T) {
	f := newFixture()
	stale := f.now.Add(-8 * 24 * time.Hour)
	f.store.rows[1] = &contracts.InsiderPerformance{InsiderID: 1, LastCalculatedAt: &stale}

	updated, err := f.tracker().Update(context.Background(), 1, false)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.NotNil(t, f.store.rows[1].AvgReturn)
}

func TestUpdateAll(t *testing.T) {
	f := newFixture()
	f.insiders.insiders[3] = &contracts.Insider{ID: 3, Name: "No Buys"}

	count, err := f.tracker().UpdateAll(context.Background(), 0, false)
	require.NoError(t, err)

	assert.Equal(t, DefaultMinTrades, f.insiders.minAsked)
	assert.Equal(t, 2, count, "insider without purchases fails and is skipped")
	assert.Equal(t, 2, f.store.saves)
}

func TestUpdateAll_CancelledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := f.tracker().UpdateAll(ctx, 3, true)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, count)
}
