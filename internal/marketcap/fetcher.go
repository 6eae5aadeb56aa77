package marketcap

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/external/yahoo"
	"github.com/tossww/open-insider-trader/internal/prices"
	"github.com/tossww/open-insider-trader/pkg/logger"
	"github.com/tossww/open-insider-trader/pkg/redis"
)

// SourceYahoo tags caps estimated from Yahoo quotes
const SourceYahoo = "yahoo"

// lookbackDays is the window searched for the closest bar to the target date
const lookbackDays = 7

// QuoteSource supplies the current quote for a ticker
type QuoteSource interface {
	Quote(ctx context.Context, ticker string) (*yahoo.QuoteInfo, error)
}

// cachedCap wraps nil so misses can be cached in Redis too
type cachedCap struct {
	Value *float64 `json:"value"`
}

// Fetcher resolves the market cap of a ticker on a date.
//
// Lookup order: process cache, Redis, market_caps table, then an estimate
// from the current Yahoo quote scaled by the close on the date. Misses are
// cached as well so failing tickers are not retried within a run.
// ⭐ SSOT: 시가총액 조회는 여기서만
type Fetcher struct {
	repo   contracts.MarketCapRepository
	quotes QuoteSource
	bars   prices.Source
	cache  *redis.Cache

	mu     sync.Mutex
	memory map[string]*float64

	logger *logger.Logger
}

// NewFetcher creates a market cap fetcher. repo and cache may be nil.
func NewFetcher(repo contracts.MarketCapRepository, quotes QuoteSource, bars prices.Source, cache *redis.Cache, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Fetcher{
		repo:   repo,
		quotes: quotes,
		bars:   bars,
		cache:  cache,
		memory: make(map[string]*float64),
		logger: log.Module("marketcap"),
	}
}

// MarketCapAt returns the cap in USD on date, or nil when it cannot be determined
func (f *Fetcher) MarketCapAt(ctx context.Context, ticker string, date time.Time) *float64 {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	day := contracts.Day(date)
	dateStr := day.Format("2006-01-02")
	key := ticker + "_" + dateStr

	f.mu.Lock()
	value, ok := f.memory[key]
	f.mu.Unlock()
	if ok {
		return value
	}

	if f.cache != nil {
		var cached cachedCap
		if found, err := f.cache.Get(ctx, redis.MarketCapKey(ticker, dateStr), &cached); err == nil && found {
			return f.remember(key, cached.Value)
		}
	}

	value = f.lookup(ctx, ticker, day)

	if f.cache != nil {
		_ = f.cache.Set(ctx, redis.MarketCapKey(ticker, dateStr), cachedCap{Value: value}, redis.TTLLong)
	}

	log := f.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"date":   dateStr,
	})
	if value != nil {
		log.WithField("market_cap", *value).Debug("Resolved market cap")
	} else {
		log.Warn("Could not determine market cap")
	}

	return f.remember(key, value)
}

func (f *Fetcher) lookup(ctx context.Context, ticker string, day time.Time) *float64 {
	if f.repo != nil {
		stored, err := f.repo.GetMarketCap(ctx, ticker, day)
		if err != nil {
			f.logger.WithError(err).WithField("ticker", ticker).Warn("Market cap store lookup failed")
		} else if stored != nil {
			return stored
		}
	}

	value, err := f.estimate(ctx, ticker, day)
	if err != nil {
		f.logger.WithError(err).WithField("ticker", ticker).Debug("Market cap estimate failed")
		return nil
	}
	if value == nil {
		return nil
	}

	if f.repo != nil {
		if err := f.repo.SaveMarketCap(ctx, ticker, day, *value, SourceYahoo); err != nil {
			f.logger.WithError(err).WithField("ticker", ticker).Warn("Failed to persist market cap")
		}
	}
	return value
}

// estimate scales the current cap by close(date)/current price, falling back
// to shares outstanding × close(date)
func (f *Fetcher) estimate(ctx context.Context, ticker string, day time.Time) (*float64, error) {
	if f.quotes == nil || f.bars == nil {
		return nil, nil
	}

	end := day.AddDate(0, 0, 1)
	bars, err := f.bars.History(ctx, ticker, day.AddDate(0, 0, -lookbackDays), &end)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	closePx, ok := closestClose(bars, day)
	if !ok {
		return nil, nil
	}

	quote, err := f.quotes.Quote(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}

	if quote.MarketCap != nil && *quote.MarketCap > 0 &&
		quote.RegularMarketPrice != nil && *quote.RegularMarketPrice > 0 {
		v := *quote.MarketCap * closePx / *quote.RegularMarketPrice
		return &v, nil
	}
	if quote.SharesOutstanding != nil && *quote.SharesOutstanding > 0 {
		v := *quote.SharesOutstanding * closePx
		return &v, nil
	}
	return nil, nil
}

// closestClose picks the close of the bar nearest to day
func closestClose(bars []contracts.PriceBar, day time.Time) (float64, bool) {
	var (
		best     float64
		bestDist time.Duration = -1
	)
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		dist := contracts.Day(b.Date).Sub(day)
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = b.Close, dist
		}
	}
	return best, bestDist >= 0
}

// Backfill resolves the filing-date cap of every transaction that lacks one.
// Returns the number of transactions that gained a value.
func (f *Fetcher) Backfill(ctx context.Context, txns []contracts.Transaction) int {
	filled := 0
	for i := range txns {
		if txns[i].HasMarketCap() {
			continue
		}
		if err := ctx.Err(); err != nil {
			break
		}
		if v := f.MarketCapAt(ctx, txns[i].Ticker, txns[i].FilingDate); v != nil {
			txns[i].MarketCapUSD = v
			filled++
		}
	}
	return filled
}

// ClearCache drops the process cache, including cached misses
func (f *Fetcher) ClearCache() {
	f.mu.Lock()
	f.memory = make(map[string]*float64)
	f.mu.Unlock()
}

func (f *Fetcher) remember(key string, value *float64) *float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memory[key] = value
	return value
}
