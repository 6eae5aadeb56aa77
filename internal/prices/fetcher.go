package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/pkg/logger"
	"github.com/tossww/open-insider-trader/pkg/redis"
)

// ErrNoData is returned when the source has no bars for the requested range
var ErrNoData = errors.New("no price data")

// startBuffer is subtracted from every requested start date
const startBuffer = 30 * 24 * time.Hour

// Source supplies daily bars for a ticker. end nil means up to today.
type Source interface {
	History(ctx context.Context, ticker string, start time.Time, end *time.Time) ([]contracts.PriceBar, error)
}

// Fetcher is a read-through cache over a price Source.
//
// Lookup order: process cache, Redis series cache, Source (with retries),
// then the Postgres bar store as a fallback when the Source keeps failing.
// The process cache is guarded by a mutex; callers still run one
// computation per Fetcher.
// ⭐ SSOT: 가격 시계열 조회는 여기서만
type Fetcher struct {
	source Source
	store  contracts.PriceRepository
	series *redis.Cache

	mu    sync.Mutex
	cache map[string]*PriceData

	retryAttempts int
	retryDelay    time.Duration
	batchLimiter  *rate.Limiter

	logger *logger.Logger
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithStore persists fetched bars and serves them when the source fails
func WithStore(store contracts.PriceRepository) Option {
	return func(f *Fetcher) { f.store = store }
}

// WithSeriesCache caches whole series in Redis
func WithSeriesCache(cache *redis.Cache) Option {
	return func(f *Fetcher) { f.series = cache }
}

// WithRetry overrides the retry count and delay (default 3 attempts, 1s)
func WithRetry(attempts int, delay time.Duration) Option {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.retryAttempts = attempts
		}
		f.retryDelay = delay
	}
}

// WithBatchInterval sets the pause between tickers in FetchBatch (default 500ms)
func WithBatchInterval(interval time.Duration) Option {
	return func(f *Fetcher) {
		if interval <= 0 {
			f.batchLimiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.batchLimiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// NewFetcher creates a fetcher over source
func NewFetcher(source Source, log *logger.Logger, opts ...Option) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	f := &Fetcher{
		source:        source,
		cache:         make(map[string]*PriceData),
		retryAttempts: 3,
		retryDelay:    time.Second,
		batchLimiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:        log.Module("prices"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CacheKey formats TICKER_start_end with "now" for an open end
func CacheKey(ticker string, start time.Time, end *time.Time) string {
	endStr := "now"
	if end != nil {
		endStr = end.Format("2006-01-02")
	}
	return fmt.Sprintf("%s_%s_%s", strings.ToUpper(ticker), start.Format("2006-01-02"), endStr)
}

// Fetch returns the series for ticker from start (buffered 30 days earlier)
// to end. Returns ErrNoData when nothing is available.
func (f *Fetcher) Fetch(ctx context.Context, ticker string, start time.Time, end *time.Time) (*PriceData, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	key := CacheKey(ticker, start, end)

	f.mu.Lock()
	cached, ok := f.cache[key]
	f.mu.Unlock()
	if ok {
		return cached, nil
	}

	endStr := "now"
	if end != nil {
		endStr = end.Format("2006-01-02")
	}
	seriesKey := redis.PriceSeriesKey(ticker, start.Format("2006-01-02"), endStr)

	if f.series != nil {
		var bars []contracts.PriceBar
		found, err := f.series.Get(ctx, seriesKey, &bars)
		if err != nil {
			f.logger.WithError(err).WithField("ticker", ticker).Debug("Price series cache read failed")
		}
		if found && len(bars) > 0 {
			return f.remember(key, NewPriceData(ticker, bars)), nil
		}
	}

	bars, err := f.fetchWithRetry(ctx, ticker, start.Add(-startBuffer), end)
	if err != nil && f.store != nil && !errors.Is(err, context.Canceled) {
		bars, err = f.fromStore(ctx, ticker, start.Add(-startBuffer), end, err)
	} else if err == nil && f.store != nil {
		if saveErr := f.store.SaveBars(ctx, ticker, bars); saveErr != nil {
			f.logger.WithError(saveErr).WithField("ticker", ticker).Warn("Failed to persist price bars")
		}
	}
	if err != nil {
		return nil, err
	}

	data := NewPriceData(ticker, bars)
	if f.series != nil {
		_ = f.series.Set(ctx, seriesKey, data.Bars(), redis.TTLDaily)
	}
	return f.remember(key, data), nil
}

// FetchBatch fetches each ticker once, pausing between requests.
// Failed or empty tickers are logged and left out of the result.
func (f *Fetcher) FetchBatch(ctx context.Context, tickers []string, start time.Time, end *time.Time) map[string]*PriceData {
	results := make(map[string]*PriceData, len(tickers))
	seen := make(map[string]struct{}, len(tickers))

	for _, raw := range tickers {
		ticker := strings.ToUpper(strings.TrimSpace(raw))
		if ticker == "" {
			continue
		}
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}

		if err := f.batchLimiter.Wait(ctx); err != nil {
			f.logger.WithError(err).Warn("Price batch interrupted")
			break
		}

		data, err := f.Fetch(ctx, ticker, start, end)
		if err != nil {
			f.logger.WithError(err).WithField("ticker", ticker).Warn("Skipping ticker without price data")
			continue
		}
		results[ticker] = data
	}

	f.logger.WithFields(map[string]interface{}{
		"requested": len(seen),
		"fetched":   len(results),
	}).Info("Fetched price batch")

	return results
}

// ClearCache drops the process cache
func (f *Fetcher) ClearCache() {
	f.mu.Lock()
	f.cache = make(map[string]*PriceData)
	f.mu.Unlock()
}

func (f *Fetcher) remember(key string, data *PriceData) *PriceData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache[key] = data
	return data
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, ticker string, start time.Time, end *time.Time) ([]contracts.PriceBar, error) {
	var lastErr error
	for attempt := 1; attempt <= f.retryAttempts; attempt++ {
		bars, err := f.source.History(ctx, ticker, start, end)
		if err == nil {
			if len(bars) == 0 {
				return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
			}
			return bars, nil
		}
		if errors.Is(err, ErrNoData) {
			return nil, err
		}
		lastErr = err

		if attempt < f.retryAttempts {
			f.logger.WithError(err).WithFields(map[string]interface{}{
				"ticker":  ticker,
				"attempt": attempt,
			}).Warn("Price fetch failed, retrying")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("fetch %s after %d attempts: %w", ticker, f.retryAttempts, lastErr)
}

func (f *Fetcher) fromStore(ctx context.Context, ticker string, start time.Time, end *time.Time, cause error) ([]contracts.PriceBar, error) {
	to := time.Now().UTC()
	if end != nil {
		to = *end
	}

	bars, err := f.store.GetBars(ctx, ticker, start, to)
	if err != nil {
		return nil, fmt.Errorf("%w (store fallback: %v)", cause, err)
	}
	if len(bars) == 0 {
		return nil, cause
	}

	f.logger.WithError(cause).WithFields(map[string]interface{}{
		"ticker": ticker,
		"bars":   len(bars),
	}).Warn("Serving stored prices after source failure")
	return bars, nil
}
