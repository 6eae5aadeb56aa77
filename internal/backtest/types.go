package backtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/tossww/open-insider-trader/internal/metrics"
)

// ErrNoSignals is returned by Run when there is nothing to trade
var ErrNoSignals = errors.New("no signals to backtest")

// HoldToEnd holds every position until the last available bar
const HoldToEnd = -1

// Config holds backtest configuration
type Config struct {
	CommissionPct   float64 // per side (0.002 = 0.2%)
	SlippagePct     float64 // per side
	BenchmarkTicker string  // e.g. ^GSPC
	RiskFreeRate    float64
}

// RoundTripCost is charged once per trade: 2 × (commission + slippage)
func (c Config) RoundTripCost() float64 {
	return 2 * (c.CommissionPct + c.SlippagePct)
}

// TradeResult is one simulated position
type TradeResult struct {
	Ticker      string    `json:"ticker"`
	InsiderName string    `json:"insider_name,omitempty"`
	FilingDate  time.Time `json:"filing_date"`
	EntryDate   time.Time `json:"entry_date"`
	ExitDate    time.Time `json:"exit_date"`
	HoldingDays int       `json:"holding_days"` // realized trading days
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	GrossReturn float64   `json:"gross_return"`
	NetReturn   float64   `json:"net_return"`
	SignalScore float64   `json:"signal_score"`
}

// Result holds backtest results for one holding period
type Result struct {
	HoldingPeriodDays int           `json:"holding_period_days"`
	Trades            []TradeResult `json:"trades"`

	TotalTrades      int     `json:"total_trades"`
	WinningTrades    int     `json:"winning_trades"`
	LosingTrades     int     `json:"losing_trades"`
	WinRate          float64 `json:"win_rate"`
	AvgGrossReturn   float64 `json:"avg_gross_return"`
	AvgNetReturn     float64 `json:"avg_net_return"`
	MedianNetReturn  float64 `json:"median_net_return"`
	TotalGrossReturn float64 `json:"total_gross_return"`
	TotalNetReturn   float64 `json:"total_net_return"`
	MaxWin           float64 `json:"max_win"`
	MaxLoss          float64 `json:"max_loss"`

	// 벤치마크 비교 (데이터 없으면 nil)
	AvgSPYReturn     *float64  `json:"avg_spy_return"`
	Alpha            *float64  `json:"alpha"`
	BenchmarkReturns []float64 `json:"benchmark_returns,omitempty"`
}

// NetReturns returns per-trade net returns in trade order
func (r *Result) NetReturns() []float64 {
	out := make([]float64, len(r.Trades))
	for i, t := range r.Trades {
		out[i] = t.NetReturn
	}
	return out
}

// AvgHoldingDays is the mean realized holding period
func (r *Result) AvgHoldingDays() float64 {
	if len(r.Trades) == 0 {
		return 0
	}
	var sum int
	for _, t := range r.Trades {
		sum += t.HoldingDays
	}
	return float64(sum) / float64(len(r.Trades))
}

// PeriodLabel formats a holding period ("21d", or "max" for hold-to-end)
func PeriodLabel(days int) string {
	if days == HoldToEnd {
		return "max"
	}
	return fmt.Sprintf("%dd", days)
}

// Summary formats the result for terminal output
func (r *Result) Summary() map[string]string {
	pct := func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) }
	optional := func(v *float64) string {
		if v == nil {
			return "N/A"
		}
		return pct(*v)
	}

	return map[string]string{
		"holding_period":    PeriodLabel(r.HoldingPeriodDays),
		"total_trades":      fmt.Sprintf("%d", r.TotalTrades),
		"win_rate":          fmt.Sprintf("%.1f%%", r.WinRate*100),
		"avg_net_return":    pct(r.AvgNetReturn),
		"median_net_return": pct(r.MedianNetReturn),
		"total_net_return":  pct(r.TotalNetReturn),
		"max_win":           pct(r.MaxWin),
		"max_loss":          pct(r.MaxLoss),
		"avg_spy_return":    optional(r.AvgSPYReturn),
		"alpha":             optional(r.Alpha),
	}
}

// PeriodReport bundles one period's result with its risk metrics
type PeriodReport struct {
	Result           *Result              `json:"result"`
	Metrics          metrics.RiskMetrics  `json:"metrics"`
	BenchmarkMetrics *metrics.RiskMetrics `json:"benchmark_metrics,omitempty"`
	Comparison       *metrics.Comparison  `json:"comparison,omitempty"`

	// 평균 트레이드 수익률의 부트스트랩 분포 (트레이드 2건 미만이면 nil)
	Confidence *metrics.MonteCarloResult `json:"confidence,omitempty"`
}

// Report is a multi-period backtest run
type Report struct {
	ID          string                `json:"id"`
	ConfigHash  string                `json:"config_hash,omitempty"`
	GeneratedAt time.Time             `json:"generated_at"`
	SignalCount int                   `json:"signal_count"`
	Periods     map[int]*PeriodReport `json:"periods"`
}

// SortedPeriods returns the report's periods ascending, hold-to-end last
func (r *Report) SortedPeriods() []int {
	periods := make([]int, 0, len(r.Periods))
	for p := range r.Periods {
		periods = append(periods, p)
	}
	sortPeriods(periods)
	return periods
}
