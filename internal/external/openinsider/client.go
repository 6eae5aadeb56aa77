package openinsider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/external/yahoo"
	"github.com/tossww/open-insider-trader/pkg/config"
	"github.com/tossww/open-insider-trader/pkg/httputil"
	"github.com/tossww/open-insider-trader/pkg/logger"
	"github.com/tossww/open-insider-trader/pkg/redis"
)

// PageSize is the number of rows requested per screener page
const PageSize = 100

// TickerValidator confirms that a ticker is known to the price source
type TickerValidator interface {
	Quote(ctx context.Context, ticker string) (*yahoo.QuoteInfo, error)
}

// FetchOptions bounds a screener crawl
type FetchOptions struct {
	DaysBack    int
	MinValueUSD float64
	MaxPages    int
}

// Client scrapes insider purchases from the OpenInsider screener
// ⭐ SSOT: OpenInsider 스크래핑은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	pages      *redis.Cache
	limiter    *rate.Limiter
	validator  TickerValidator
	cfg        config.OpenInsiderConfig
	logger     *logger.Logger
}

// NewClient creates a new OpenInsider client. pages and validator may be nil.
func NewClient(httpClient *httputil.Client, cfg config.OpenInsiderConfig, pages *redis.Cache, validator TickerValidator, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.UserAgent != "" {
		httpClient.WithHeader("User-Agent", cfg.UserAgent)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}

	return &Client{
		httpClient: httpClient,
		pages:      pages,
		limiter:    rate.NewLimiter(limit, 1),
		validator:  validator,
		cfg:        cfg,
		logger:     log.Module("openinsider"),
	}
}

// DefaultOptions returns the crawl bounds from configuration
func (c *Client) DefaultOptions() FetchOptions {
	return FetchOptions{
		DaysBack:    c.cfg.DaysBack,
		MinValueUSD: c.cfg.MinValueUSD,
		MaxPages:    c.cfg.MaxPages,
	}
}

// FetchPage returns the raw HTML of one screener page, served from the
// page cache when present
func (c *Client) FetchPage(ctx context.Context, daysBack, page int) (string, error) {
	key := redis.ScreenerPageKey(daysBack, page)
	if c.pages != nil {
		var cached string
		if found, err := c.pages.Get(ctx, key, &cached); err == nil && found {
			c.logger.WithField("page", page).Debug("Using cached screener page")
			return cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	c.logger.WithFields(map[string]interface{}{
		"page":     page,
		"days_ago": daysBack,
	}).Info("Fetching screener page")

	body, err := c.httpClient.GetBody(ctx, c.cfg.BaseURL, screenerParams(daysBack, page))
	if err != nil {
		return "", fmt.Errorf("fetch screener page %d: %w", page, err)
	}
	html := string(body)

	if c.pages != nil {
		if err := c.pages.Set(ctx, key, html, redis.TTLMedium); err != nil {
			c.logger.WithError(err).Debug("Failed to cache screener page")
		}
	}

	return html, nil
}

// screenerParams 매수만, 옵션 행사 및 소액 거래 제외
func screenerParams(daysBack, page int) url.Values {
	params := url.Values{}
	params.Set("s", "")
	params.Set("fd", "0")
	params.Set("td", "0")
	params.Set("daysago", strconv.Itoa(daysBack))
	params.Set("xp", "1")
	params.Set("xs", "1")
	params.Set("sic1", "-1")
	params.Set("sicl", "100")
	params.Set("sich", "9999")
	params.Set("grp", "0")
	params.Set("sortcol", "0")
	params.Set("cnt", strconv.Itoa(PageSize))
	params.Set("page", strconv.Itoa(page))
	return params
}

// FetchLatestPurchases crawls the screener and returns open-market purchases
// worth at least MinValueUSD. Paging stops at MaxPages, at a failed or empty
// page, or at a page shorter than PageSize. Tickers rejected by the
// validator are dropped.
func (c *Client) FetchLatestPurchases(ctx context.Context, opts FetchOptions) ([]contracts.Transaction, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 1
	}
	minValue := decimal.NewFromFloat(opts.MinValueUSD)

	log := c.logger.WithFields(map[string]interface{}{
		"days_back": opts.DaysBack,
		"min_value": opts.MinValueUSD,
		"max_pages": opts.MaxPages,
	})
	log.Info("Fetching latest purchases")

	var rows []Row
	for page := 1; page <= opts.MaxPages; page++ {
		html, err := c.FetchPage(ctx, opts.DaysBack, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.WithError(err).WithField("page", page).Error("Failed to fetch page")
			break
		}

		parsed, err := ParsePage(html)
		if err != nil {
			return nil, err
		}
		if parsed.RowCount == 0 {
			c.logger.WithField("page", page).Info("No more rows")
			break
		}
		if parsed.Skipped > 0 {
			c.logger.WithFields(map[string]interface{}{
				"page":    page,
				"skipped": parsed.Skipped,
			}).Warn("Failed to parse rows")
		}

		for _, row := range parsed.Rows {
			if !row.Code.IsPurchase() {
				continue
			}
			// 금액 미상은 필터 단계에서 missing_total_value로 집계
			if row.Value != nil && row.Value.LessThan(minValue) {
				continue
			}
			rows = append(rows, row)
		}

		if parsed.RowCount < PageSize {
			break
		}
	}

	txns := make([]contracts.Transaction, 0, len(rows))
	validate := c.tickerCheck()
	invalid := 0
	for _, row := range rows {
		if !validate(ctx, row.Ticker) {
			invalid++
			continue
		}
		txns = append(txns, row.Transaction())
	}

	if invalid > 0 {
		log.WithField("removed", invalid).Warn("Removed transactions with invalid tickers")
	}
	log.WithField("transactions", len(txns)).Info("Fetched purchases")

	return txns, nil
}

// tickerCheck returns a memoized validity check for one crawl. Only a
// definite not-found rejects a ticker; transient errors keep it.
func (c *Client) tickerCheck() func(ctx context.Context, ticker string) bool {
	if c.validator == nil {
		return func(context.Context, string) bool { return true }
	}

	var mu sync.Mutex
	seen := make(map[string]bool)

	return func(ctx context.Context, ticker string) bool {
		mu.Lock()
		valid, ok := seen[ticker]
		mu.Unlock()
		if ok {
			return valid
		}

		valid = true
		if _, err := c.validator.Quote(ctx, ticker); err != nil {
			if errors.Is(err, yahoo.ErrNotFound) {
				valid = false
				c.logger.WithField("ticker", ticker).Warn("Ticker not found")
			} else {
				c.logger.WithError(err).WithField("ticker", ticker).Debug("Ticker validation failed, keeping")
			}
		}

		mu.Lock()
		seen[ticker] = valid
		mu.Unlock()
		return valid
	}
}
