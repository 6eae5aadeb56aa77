package metrics

import (
	"encoding/json"
	"fmt"
	"math"
)

// TradingDaysPerYear annualizes per-trade returns
const TradingDaysPerYear = 252

// RiskMetrics summarizes a list of per-trade net returns
type RiskMetrics struct {
	TotalReturn  float64  `json:"total_return"`
	AvgReturn    float64  `json:"avg_return"`
	MedianReturn float64  `json:"median_return"`
	StdReturn    float64  `json:"std_return"`
	SharpeRatio  float64  `json:"sharpe_ratio"`
	MaxDrawdown  float64  `json:"max_drawdown"`
	CalmarRatio  float64  `json:"calmar_ratio"` // +Inf when there is no drawdown
	WinRate      float64  `json:"win_rate"`
	ProfitFactor *float64 `json:"profit_factor"` // nil without losing trades
	Skewness     float64  `json:"skewness"`
	Kurtosis     float64  `json:"kurtosis"`

	VaR95 VaRResult `json:"var_95"`
}

// Comparison is the strategy minus benchmark difference of key metrics
type Comparison struct {
	Alpha        float64 `json:"alpha"`
	SharpeDiff   float64 `json:"sharpe_diff"`
	DrawdownDiff float64 `json:"drawdown_diff"`
	CalmarDiff   float64 `json:"calmar_diff"`
	WinRateDiff  float64 `json:"win_rate_diff"`
}

// Calculator 순수 계산기. 상태 없음.
// ⭐ SSOT: 백테스트 리스크 지표 계산은 여기서만
type Calculator struct {
	riskFreeRate float64
}

// NewCalculator creates a calculator with an annual risk-free rate (0.04 = 4%).
// The rate is used as given; bounds are checked by signalconfig.Validate.
func NewCalculator(riskFreeRate float64) *Calculator {
	return &Calculator{riskFreeRate: riskFreeRate}
}

// RiskFreeRate returns the configured annual rate
func (c *Calculator) RiskFreeRate() float64 {
	return c.riskFreeRate
}

func periodsPerYear(holdingDays int) float64 {
	if holdingDays <= 0 {
		return 0
	}
	return float64(TradingDaysPerYear) / float64(holdingDays)
}

// SharpeRatio annualized with periods_per_year = 252 / holdingDays.
// 0 for fewer than 2 returns or zero deviation.
func (c *Calculator) SharpeRatio(returns []float64, holdingDays int) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := StdDev(returns)
	ppy := periodsPerYear(holdingDays)
	if std == 0 || ppy == 0 {
		return 0
	}

	annualizedReturn := Mean(returns) * ppy
	annualizedStd := std * math.Sqrt(ppy)
	return (annualizedReturn - c.riskFreeRate) / annualizedStd
}

// MaxDrawdown of the compounded equity curve, walked in input order.
// Returned as a positive fraction (0.25 = 25%).
func (c *Calculator) MaxDrawdown(returns []float64) float64 {
	var (
		equity = 1.0
		peak   = 0.0
		maxDD  = 0.0
	)
	for i, r := range returns {
		equity *= 1 + r
		if i == 0 || equity > peak {
			peak = equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// CalmarRatio annualized return over max drawdown. Without a drawdown it is
// +Inf for a positive annualized return and 0 otherwise.
func (c *Calculator) CalmarRatio(returns []float64, holdingDays int) float64 {
	if len(returns) == 0 {
		return 0
	}

	annualized := Mean(returns) * periodsPerYear(holdingDays)
	dd := c.MaxDrawdown(returns)
	if dd == 0 {
		if annualized > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return annualized / dd
}

// ProfitFactor sum of wins over sum of absolute losses; nil without losses
func (c *Calculator) ProfitFactor(returns []float64) *float64 {
	var wins, losses float64
	for _, r := range returns {
		switch {
		case r > 0:
			wins += r
		case r < 0:
			losses -= r
		}
	}
	if losses == 0 {
		return nil
	}
	pf := wins / losses
	return &pf
}

// WinRate fraction of returns above zero
func (c *Calculator) WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// Calculate computes every metric. Empty input yields zero values.
func (c *Calculator) Calculate(returns []float64, holdingDays int) RiskMetrics {
	if len(returns) == 0 {
		return RiskMetrics{VaR95: VaRResult{Confidence: 0.95}}
	}

	return RiskMetrics{
		TotalReturn:  Sum(returns),
		AvgReturn:    Mean(returns),
		MedianReturn: Median(returns),
		StdReturn:    StdDev(returns),
		SharpeRatio:  c.SharpeRatio(returns, holdingDays),
		MaxDrawdown:  c.MaxDrawdown(returns),
		CalmarRatio:  c.CalmarRatio(returns, holdingDays),
		WinRate:      c.WinRate(returns),
		ProfitFactor: c.ProfitFactor(returns),
		Skewness:     Skewness(returns),
		Kurtosis:     Kurtosis(returns),
		VaR95:        CalculateVaR(returns, 0.95),
	}
}

// CompareToBenchmark returns strategy minus benchmark for each key metric
func CompareToBenchmark(strategy, benchmark RiskMetrics) Comparison {
	return Comparison{
		Alpha:        strategy.AvgReturn - benchmark.AvgReturn,
		SharpeDiff:   strategy.SharpeRatio - benchmark.SharpeRatio,
		DrawdownDiff: strategy.MaxDrawdown - benchmark.MaxDrawdown,
		CalmarDiff:   finiteDiff(strategy.CalmarRatio, benchmark.CalmarRatio),
		WinRateDiff:  strategy.WinRate - benchmark.WinRate,
	}
}

// finiteDiff is a - b, or 0 when either side is infinite
func finiteDiff(a, b float64) float64 {
	d := a - b
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}

// Display formats the metrics for terminal output
func (m RiskMetrics) Display() map[string]string {
	profitFactor := "N/A"
	if m.ProfitFactor != nil {
		profitFactor = fmt.Sprintf("%.2f", *m.ProfitFactor)
	}

	return map[string]string{
		"total_return":  fmt.Sprintf("%.2f%%", m.TotalReturn*100),
		"avg_return":    fmt.Sprintf("%.2f%%", m.AvgReturn*100),
		"median_return": fmt.Sprintf("%.2f%%", m.MedianReturn*100),
		"std_return":    fmt.Sprintf("%.2f%%", m.StdReturn*100),
		"sharpe_ratio":  fmt.Sprintf("%.2f", m.SharpeRatio),
		"max_drawdown":  fmt.Sprintf("%.2f%%", m.MaxDrawdown*100),
		"calmar_ratio":  formatRatio(m.CalmarRatio),
		"win_rate":      fmt.Sprintf("%.1f%%", m.WinRate*100),
		"profit_factor": profitFactor,
		"skewness":      fmt.Sprintf("%.2f", m.Skewness),
		"kurtosis":      fmt.Sprintf("%.2f", m.Kurtosis),
		"var_95":        fmt.Sprintf("%.2f%%", m.VaR95.VaR*100),
	}
}

// MarshalJSON writes an infinite Calmar ratio as the string "inf"
func (m RiskMetrics) MarshalJSON() ([]byte, error) {
	type alias RiskMetrics
	out := struct {
		alias
		CalmarRatio interface{} `json:"calmar_ratio"`
	}{alias: alias(m), CalmarRatio: m.CalmarRatio}
	if math.IsInf(m.CalmarRatio, 0) {
		out.CalmarRatio = formatRatio(m.CalmarRatio)
	}
	return json.Marshal(out)
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return fmt.Sprintf("%.2f", v)
}
