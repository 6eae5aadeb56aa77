package prices

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

type fakeSource struct {
	mu       sync.Mutex
	bars     map[string][]contracts.PriceBar
	failures map[string]int // remaining transient failures per ticker
	calls    map[string]int
	starts   []time.Time
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		bars:     make(map[string][]contracts.PriceBar),
		failures: make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (s *fakeSource) History(ctx context.Context, ticker string, start time.Time, end *time.Time) ([]contracts.PriceBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[ticker]++
	s.starts = append(s.starts, start)

	if s.failures[ticker] > 0 {
		s.failures[ticker]--
		return nil, errors.New("connection reset")
	}
	bars, ok := s.bars[ticker]
	if !ok {
		return nil, ErrNoData
	}
	return bars, nil
}

type memoryStore struct {
	saved map[string][]contracts.PriceBar
}

func (m *memoryStore) GetBars(ctx context.Context, ticker string, from, to time.Time) ([]contracts.PriceBar, error) {
	return m.saved[ticker], nil
}

func (m *memoryStore) SaveBars(ctx context.Context, ticker string, bars []contracts.PriceBar) error {
	if m.saved == nil {
		m.saved = make(map[string][]contracts.PriceBar)
	}
	m.saved[ticker] = bars
	return nil
}

var jan = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func sampleBars() []contracts.PriceBar {
	return []contracts.PriceBar{
		{Date: jan, Open: 10, Close: 11},
		{Date: jan.AddDate(0, 0, 1), Open: 11, Close: 12},
	}
}

func newTestFetcher(src Source, opts ...Option) *Fetcher {
	opts = append([]Option{WithRetry(3, 0), WithBatchInterval(0)}, opts...)
	return NewFetcher(src, logger.Nop(), opts...)
}

func TestCacheKey(t *testing.T) {
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "AAPL_2024-01-10_now", CacheKey("aapl", jan, nil))
	assert.Equal(t, "AAPL_2024-01-10_2024-03-01", CacheKey("AAPL", jan, &end))
}

func TestFetch_BuffersStartAndCaches(t *testing.T) {
	src := newFakeSource()
	src.bars["ABC"] = sampleBars()
	f := newTestFetcher(src)

	data, err := f.Fetch(context.Background(), "abc", jan, nil)
	require.NoError(t, err)
	assert.Equal(t, "ABC", data.Ticker)
	assert.Equal(t, 2, data.Len())
	require.Len(t, src.starts, 1)
	assert.Equal(t, jan.AddDate(0, 0, -30), src.starts[0])

	again, err := f.Fetch(context.Background(), "ABC", jan, nil)
	require.NoError(t, err)
	assert.Same(t, data, again)
	assert.Equal(t, 1, src.calls["ABC"])

	f.ClearCache()
	_, err = f.Fetch(context.Background(), "ABC", jan, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls["ABC"])
}

func TestFetch_RetriesTransientErrors(t *testing.T) {
	src := newFakeSource()
	src.bars["ABC"] = sampleBars()
	src.failures["ABC"] = 2
	f := newTestFetcher(src)

	data, err := f.Fetch(context.Background(), "ABC", jan, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Len())
	assert.Equal(t, 3, src.calls["ABC"])
}

func TestFetch_GivesUpAfterRetries(t *testing.T) {
	src := newFakeSource()
	src.bars["ABC"] = sampleBars()
	src.failures["ABC"] = 5
	f := newTestFetcher(src)

	_, err := f.Fetch(context.Background(), "ABC", jan, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, src.calls["ABC"])
}

func TestFetch_NoDataIsNotRetried(t *testing.T) {
	src := newFakeSource()
	f := newTestFetcher(src)

	_, err := f.Fetch(context.Background(), "ZZZ", jan, nil)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 1, src.calls["ZZZ"])
}

func TestFetch_PersistsAndFallsBackToStore(t *testing.T) {
	src := newFakeSource()
	src.bars["ABC"] = sampleBars()
	store := &memoryStore{}

	f := newTestFetcher(src, WithStore(store))
	_, err := f.Fetch(context.Background(), "ABC", jan, nil)
	require.NoError(t, err)
	assert.Len(t, store.saved["ABC"], 2)

	down := newFakeSource()
	down.failures["ABC"] = 10
	fallback := newTestFetcher(down, WithStore(store))

	data, err := fallback.Fetch(context.Background(), "ABC", jan, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, data.Len())
}

func TestFetchBatch_SkipsFailures(t *testing.T) {
	src := newFakeSource()
	src.bars["AAA"] = sampleBars()
	src.bars["BBB"] = sampleBars()
	f := newTestFetcher(src)

	got := f.FetchBatch(context.Background(), []string{"AAA", "missing", "bbb", "AAA", " "}, jan, nil)

	assert.Len(t, got, 2)
	assert.Contains(t, got, "AAA")
	assert.Contains(t, got, "BBB")
	assert.NotContains(t, got, "MISSING")
	assert.Equal(t, 1, src.calls["AAA"], "duplicates fetched once")
}
