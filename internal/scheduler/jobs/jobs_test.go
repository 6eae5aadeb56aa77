package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/external/openinsider"
	"github.com/tossww/open-insider-trader/internal/pipeline"
	"github.com/tossww/open-insider-trader/internal/scheduler"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

type fakeSource struct {
	txns []contracts.Transaction
	err  error
	opts openinsider.FetchOptions
}

func (f *fakeSource) FetchLatestPurchases(ctx context.Context, opts openinsider.FetchOptions) ([]contracts.Transaction, error) {
	f.opts = opts
	return f.txns, f.err
}

func (f *fakeSource) DefaultOptions() openinsider.FetchOptions {
	return openinsider.FetchOptions{DaysBack: 30, MinValueUSD: 50000, MaxPages: 10}
}

type fakeBackfiller struct{ calls int }

func (f *fakeBackfiller) Backfill(ctx context.Context, txns []contracts.Transaction) int {
	f.calls++
	for i := range txns {
		txns[i].MarketCapUSD = contracts.Float64Ptr(1e9)
	}
	return len(txns)
}

type fakeSaver struct {
	saved []contracts.Transaction
}

func (f *fakeSaver) SaveTransactions(ctx context.Context, txns []contracts.Transaction) (int, error) {
	f.saved = append(f.saved, txns...)
	return len(txns) - 1, nil
}

func TestOpenInsiderCollectionJob(t *testing.T) {
	source := &fakeSource{txns: []contracts.Transaction{{Ticker: "ABC"}, {Ticker: "XYZ"}}}
	caps := &fakeBackfiller{}
	repo := &fakeSaver{}
	job := NewOpenInsiderCollectionJob(source, caps, repo, logger.Nop())

	stats, err := job.Collect(context.Background(), openinsider.FetchOptions{DaysBack: 7, MaxPages: 2})
	require.NoError(t, err)

	assert.Equal(t, CollectionStats{Fetched: 2, MarketCaps: 2, Saved: 1}, stats)
	assert.Equal(t, 7, source.opts.DaysBack)
	require.Len(t, repo.saved, 2)
	assert.True(t, repo.saved[0].HasMarketCap(), "market caps are attached before saving")

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 30, source.opts.DaysBack, "Run uses the configured bounds")
}

func TestOpenInsiderCollectionJob_Errors(t *testing.T) {
	source := &fakeSource{err: errors.New("blocked")}
	repo := &fakeSaver{}
	job := NewOpenInsiderCollectionJob(source, nil, repo, logger.Nop())

	assert.Error(t, job.Run(context.Background()))
	assert.Empty(t, repo.saved)

	source.err = nil
	stats, err := job.Collect(context.Background(), source.DefaultOptions())
	require.NoError(t, err)
	assert.Zero(t, stats.Fetched)
	assert.Empty(t, repo.saved)
}

type fakeGenerator struct {
	err error
}

func (f *fakeGenerator) Generate(ctx context.Context) (*pipeline.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Report{ID: "r1", Signals: []contracts.Signal{{IsActionable: true}}}, nil
}

func TestSignalGenerationJob(t *testing.T) {
	assert.NoError(t, NewSignalGenerationJob(&fakeGenerator{}, logger.Nop()).Run(context.Background()))
	assert.Error(t, NewSignalGenerationJob(&fakeGenerator{err: errors.New("db down")}, logger.Nop()).Run(context.Background()))
}

type fakeUpdater struct {
	minTrades int
	force     bool
}

func (f *fakeUpdater) UpdateAll(ctx context.Context, minTrades int, force bool) (int, error) {
	f.minTrades, f.force = minTrades, force
	return 4, nil
}

func TestInsiderPerformanceJob(t *testing.T) {
	updater := &fakeUpdater{force: true}
	require.NoError(t, NewInsiderPerformanceJob(updater, 3, logger.Nop()).Run(context.Background()))
	assert.Equal(t, 3, updater.minTrades)
	assert.False(t, updater.force)
}

type fakeClearer struct{ cleared int }

func (f *fakeClearer) ClearCache() { f.cleared++ }

type fakeDeleter struct{ patterns []string }

func (f *fakeDeleter) DeletePattern(ctx context.Context, pattern string) (int, error) {
	f.patterns = append(f.patterns, pattern)
	return 2, errors.New("partial")
}

func TestCacheMaintenanceJob(t *testing.T) {
	a, b := &fakeClearer{}, &fakeClearer{}
	redis := &fakeDeleter{}

	require.NoError(t, NewCacheMaintenanceJob(redis, logger.Nop(), a, b).Run(context.Background()))
	assert.Equal(t, 1, a.cleared)
	assert.Equal(t, 1, b.cleared)
	assert.Equal(t, []string{"prices:*:now"}, redis.patterns)

	assert.NoError(t, NewCacheMaintenanceJob(nil, logger.Nop()).Run(context.Background()))
}

func TestJobsRegisterWithScheduler(t *testing.T) {
	s := scheduler.New(logger.Nop())

	all := []scheduler.Job{
		NewOpenInsiderCollectionJob(&fakeSource{}, nil, &fakeSaver{}, logger.Nop()),
		NewSignalGenerationJob(&fakeGenerator{}, logger.Nop()),
		NewInsiderPerformanceJob(&fakeUpdater{}, 3, logger.Nop()),
		NewCacheMaintenanceJob(nil, logger.Nop()),
	}
	for _, job := range all {
		require.NoError(t, s.AddJob(job), job.Name())
		assert.NotEqual(t, job.Schedule(), scheduler.Describe(job))
	}

	assert.Equal(t, []string{"cache_maintenance", "insider_performance", "openinsider_collection", "signal_generation"}, s.GetAllJobs())
}
