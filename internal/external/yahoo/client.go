package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tossww/open-insider-trader/pkg/config"
	"github.com/tossww/open-insider-trader/pkg/httputil"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// ErrNotFound is returned when Yahoo does not know the symbol
var ErrNotFound = errors.New("yahoo: symbol not found")

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	chartURL   string
	quoteURL   string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, cfg config.YahooConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("yahoo"),
		chartURL:   strings.TrimRight(cfg.ChartURL, "/"),
		quoteURL:   cfg.QuoteURL,
	}
}

// QuoteInfo is the subset of the v7 quote used for market cap estimates
type QuoteInfo struct {
	Symbol             string   `json:"symbol"`
	MarketCap          *float64 `json:"marketCap"`
	RegularMarketPrice *float64 `json:"regularMarketPrice"`
	SharesOutstanding  *float64 `json:"sharesOutstanding"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []QuoteInfo `json:"result"`
		Error  *apiError   `json:"error"`
	} `json:"quoteResponse"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("yahoo: %s: %s", e.Code, e.Description)
}

// Quote fetches the current quote for ticker
func (c *Client) Quote(ctx context.Context, ticker string) (*QuoteInfo, error) {
	ticker = normalizeSymbol(ticker)
	params := url.Values{}
	params.Set("symbols", ticker)

	var resp quoteResponse
	if err := c.httpClient.GetJSON(ctx, c.quoteURL, params, &resp); err != nil {
		return nil, wrapStatus(ticker, err)
	}
	if resp.QuoteResponse.Error != nil {
		return nil, resp.QuoteResponse.Error
	}

	for _, q := range resp.QuoteResponse.Result {
		if strings.EqualFold(q.Symbol, ticker) {
			return &q, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
}

// normalizeSymbol maps share classes such as BRK.B to Yahoo's BRK-B
func normalizeSymbol(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if strings.HasPrefix(ticker, "^") {
		return ticker
	}
	return strings.ReplaceAll(ticker, ".", "-")
}

func wrapStatus(ticker string, err error) error {
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}
	return fmt.Errorf("yahoo request for %s: %w", ticker, err)
}
