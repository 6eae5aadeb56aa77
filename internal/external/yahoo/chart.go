package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/prices"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// History implements prices.Source with split/dividend adjusted daily bars.
// end nil means up to now.
func (c *Client) History(ctx context.Context, ticker string, start time.Time, end *time.Time) ([]contracts.PriceBar, error) {
	symbol := normalizeSymbol(ticker)
	to := time.Now().UTC()
	if end != nil {
		to = *end
	}

	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "div,splits")

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, c.chartURL+"/"+url.PathEscape(symbol), params, &resp); err != nil {
		err = wrapStatus(symbol, err)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", prices.ErrNoData, err)
		}
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %v", prices.ErrNoData, resp.Chart.Error)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, prices.ErrNoData)
	}

	bars := parseChart(resp.Chart.Result[0])
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, prices.ErrNoData)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": symbol,
		"bars":   len(bars),
	}).Debug("Fetched chart")

	return bars, nil
}

// parseChart converts a chart result into bars. Rows without a close are
// skipped; OHLC is scaled by adjclose/close when adjclose is present.
func parseChart(r chartResult) []contracts.PriceBar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]

	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]contracts.PriceBar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		closePx := at(q.Close, i)
		if closePx == nil || *closePx <= 0 {
			continue
		}

		bar := contracts.PriceBar{
			Date:  contracts.Day(time.Unix(ts+r.Meta.GMTOffset, 0).UTC()),
			Open:  valueOr(at(q.Open, i), *closePx),
			High:  valueOr(at(q.High, i), *closePx),
			Low:   valueOr(at(q.Low, i), *closePx),
			Close: *closePx,
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}

		if a := at(adj, i); a != nil && *a > 0 {
			ratio := *a / *closePx
			bar.Open *= ratio
			bar.High *= ratio
			bar.Low *= ratio
			bar.Close = *a
		}

		bars = append(bars, bar)
	}
	return bars
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}
