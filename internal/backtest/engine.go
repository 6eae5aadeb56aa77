package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/metrics"
	"github.com/tossww/open-insider-trader/internal/prices"
	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// PriceProvider is the part of prices.Fetcher the engine needs
type PriceProvider interface {
	Fetch(ctx context.Context, ticker string, start time.Time, end *time.Time) (*prices.PriceData, error)
	FetchBatch(ctx context.Context, tickers []string, start time.Time, end *time.Time) map[string]*prices.PriceData
}

// Engine runs position-level backtests of insider signals.
// Each signal is traded independently with a fixed position size.
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	cfg        Config
	prices     PriceProvider
	calculator *metrics.Calculator
	monteCarlo *metrics.MonteCarlo
	logger     *logger.Logger
}

// ConfigFrom maps the signal config's backtest section
func ConfigFrom(cfg signalconfig.Backtest) Config {
	return Config{
		CommissionPct:   cfg.CommissionPct,
		SlippagePct:     cfg.SlippagePct,
		BenchmarkTicker: cfg.BenchmarkTicker,
		RiskFreeRate:    cfg.RiskFreeRate,
	}
}

// NewEngine creates a new backtest engine
func NewEngine(cfg Config, provider PriceProvider, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		cfg:        cfg,
		prices:     provider,
		calculator: metrics.NewCalculator(cfg.RiskFreeRate),
		monteCarlo: metrics.NewMonteCarlo(metrics.DefaultMonteCarloConfig()),
		logger:     log.Module("backtest"),
	}
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// BacktestSignals trades every signal for holdingDays. Prices are fetched
// once per ticker from the earliest filing date; tickers without data are
// skipped. Zero resolved trades yield a zero-valued result.
func (e *Engine) BacktestSignals(ctx context.Context, signals []contracts.TradeSignal, holdingDays int) *Result {
	if len(signals) == 0 {
		return &Result{HoldingPeriodDays: holdingDays, Trades: []TradeResult{}}
	}

	tickers, minDate := uniqueTickers(signals)

	e.logger.WithFields(map[string]interface{}{
		"signals":        len(signals),
		"tickers":        len(tickers),
		"holding_period": PeriodLabel(holdingDays),
		"from":           minDate.Format("2006-01-02"),
	}).Info("Starting backtest")

	series := e.prices.FetchBatch(ctx, tickers, minDate, nil)
	return e.backtestWithPrices(signals, holdingDays, series)
}

func (e *Engine) backtestWithPrices(signals []contracts.TradeSignal, holdingDays int, series map[string]*prices.PriceData) *Result {
	trades := make([]TradeResult, 0, len(signals))
	warned := make(map[string]bool)

	for _, sig := range signals {
		data, ok := series[strings.ToUpper(sig.Ticker)]
		if !ok {
			if !warned[sig.Ticker] {
				e.logger.WithField("ticker", sig.Ticker).Warn("No price data, skipping signals")
				warned[sig.Ticker] = true
			}
			continue
		}

		if trade := e.BacktestSignal(sig, holdingDays, data); trade != nil {
			trades = append(trades, *trade)
		}
	}

	if len(trades) == 0 {
		e.logger.WithField("holding_period", PeriodLabel(holdingDays)).Warn("No valid trades")
	}

	return aggregate(holdingDays, trades)
}

// aggregate builds the result statistics from realized trades
func aggregate(holdingDays int, trades []TradeResult) *Result {
	result := &Result{HoldingPeriodDays: holdingDays, Trades: trades}
	if len(trades) == 0 {
		result.Trades = []TradeResult{}
		return result
	}

	net := make([]float64, len(trades))
	gross := make([]float64, len(trades))
	for i, t := range trades {
		net[i] = t.NetReturn
		gross[i] = t.GrossReturn
		switch {
		case t.NetReturn > 0:
			result.WinningTrades++
		case t.NetReturn < 0:
			result.LosingTrades++
		}
	}

	result.TotalTrades = len(trades)
	result.WinRate = float64(result.WinningTrades) / float64(len(trades))
	result.AvgGrossReturn = metrics.Mean(gross)
	result.AvgNetReturn = metrics.Mean(net)
	result.MedianNetReturn = metrics.Median(net)
	result.TotalGrossReturn = metrics.Sum(gross)
	result.TotalNetReturn = metrics.Sum(net)
	result.MaxWin = math.Inf(-1)
	result.MaxLoss = math.Inf(1)
	for _, r := range net {
		result.MaxWin = math.Max(result.MaxWin, r)
		result.MaxLoss = math.Min(result.MaxLoss, r)
	}

	return result
}

// BacktestMultiplePeriods runs BacktestSignals once per holding period
func (e *Engine) BacktestMultiplePeriods(ctx context.Context, signals []contracts.TradeSignal, periods []int) map[int]*Result {
	results := make(map[int]*Result, len(periods))
	for _, period := range periods {
		result := e.BacktestSignals(ctx, signals, period)
		results[period] = result

		if result.TotalTrades > 0 {
			e.logger.WithFields(map[string]interface{}{
				"holding_period": PeriodLabel(period),
				"trades":         result.TotalTrades,
				"win_rate":       fmt.Sprintf("%.1f%%", result.WinRate*100),
				"avg_net_return": fmt.Sprintf("%.2f%%", result.AvgNetReturn*100),
				"max_win":        fmt.Sprintf("%.2f%%", result.MaxWin*100),
				"max_loss":       fmt.Sprintf("%.2f%%", result.MaxLoss*100),
			}).Info("Holding period completed")
		}
	}
	return results
}

// AddBenchmarkComparison computes the benchmark return over each trade's
// entry date and realized holding days, net of the same round-trip cost.
// Sets AvgSPYReturn and Alpha when any benchmark return exists; a missing
// benchmark leaves both nil.
func (e *Engine) AddBenchmarkComparison(ctx context.Context, result *Result) *Result {
	if result == nil || len(result.Trades) == 0 {
		return result
	}

	ticker := e.cfg.BenchmarkTicker
	if ticker == "" {
		ticker = "^GSPC"
	}

	minDate, maxDate := result.Trades[0].EntryDate, result.Trades[0].ExitDate
	for _, t := range result.Trades[1:] {
		if t.EntryDate.Before(minDate) {
			minDate = t.EntryDate
		}
		if t.ExitDate.After(maxDate) {
			maxDate = t.ExitDate
		}
	}
	// 종료일 포함
	end := maxDate.AddDate(0, 0, 1)

	bench, err := e.prices.Fetch(ctx, ticker, minDate, &end)
	if err != nil {
		e.logger.WithError(err).WithField("benchmark", ticker).Warn("Could not fetch benchmark data")
		return result
	}

	cost := e.cfg.RoundTripCost()
	returns := make([]float64, 0, len(result.Trades))
	for _, t := range result.Trades {
		r, ok := bench.ReturnOverPeriod(t.EntryDate, t.HoldingDays, contracts.FieldOpen, contracts.FieldClose)
		if !ok {
			continue
		}
		returns = append(returns, r-cost)
	}

	if len(returns) == 0 {
		return result
	}

	avg := metrics.Mean(returns)
	alpha := result.AvgNetReturn - avg
	result.AvgSPYReturn = &avg
	result.Alpha = &alpha
	result.BenchmarkReturns = returns

	e.logger.WithFields(map[string]interface{}{
		"benchmark":      ticker,
		"holding_period": PeriodLabel(result.HoldingPeriodDays),
		"avg_benchmark":  fmt.Sprintf("%.2f%%", avg*100),
		"alpha":          fmt.Sprintf("%.2f%%", alpha*100),
	}).Info("Benchmark comparison added")

	return result
}

// Metrics computes risk metrics of the result's net returns. Hold-to-end
// results are annualized with the mean realized holding period.
func (e *Engine) Metrics(result *Result) metrics.RiskMetrics {
	return e.calculator.Calculate(result.NetReturns(), annualizationDays(result))
}

func annualizationDays(result *Result) int {
	if result.HoldingPeriodDays > 0 {
		return result.HoldingPeriodDays
	}
	return int(math.Round(result.AvgHoldingDays()))
}

// Run backtests every period, adds the benchmark comparison and risk metrics
func (e *Engine) Run(ctx context.Context, signals []contracts.TradeSignal, periods []int) (*Report, error) {
	if len(signals) == 0 {
		return nil, ErrNoSignals
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("at least one holding period is required")
	}

	report := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		SignalCount: len(signals),
		Periods:     make(map[int]*PeriodReport, len(periods)),
	}

	for period, result := range e.BacktestMultiplePeriods(ctx, signals, periods) {
		e.AddBenchmarkComparison(ctx, result)

		pr := &PeriodReport{
			Result:     result,
			Metrics:    e.Metrics(result),
			Confidence: e.monteCarlo.Simulate(result.NetReturns()),
		}
		if len(result.BenchmarkReturns) > 0 {
			bm := e.calculator.Calculate(result.BenchmarkReturns, annualizationDays(result))
			cmp := metrics.CompareToBenchmark(pr.Metrics, bm)
			pr.BenchmarkMetrics = &bm
			pr.Comparison = &cmp
		}
		report.Periods[period] = pr
	}

	return report, nil
}

// ToRuns converts the report into persistable rows, one per period
func (r *Report) ToRuns() ([]*contracts.BacktestRun, error) {
	runs := make([]*contracts.BacktestRun, 0, len(r.Periods))
	for _, period := range r.SortedPeriods() {
		pr := r.Periods[period]
		payload, err := json.Marshal(pr)
		if err != nil {
			return nil, fmt.Errorf("marshal period %s: %w", PeriodLabel(period), err)
		}
		runs = append(runs, &contracts.BacktestRun{
			ConfigHash:        r.ConfigHash,
			HoldingPeriodDays: period,
			TotalTrades:       pr.Result.TotalTrades,
			WinRate:           pr.Result.WinRate,
			AvgNetReturn:      pr.Result.AvgNetReturn,
			Alpha:             pr.Result.Alpha,
			Result:            payload,
		})
	}
	return runs, nil
}

func uniqueTickers(signals []contracts.TradeSignal) ([]string, time.Time) {
	seen := make(map[string]struct{}, len(signals))
	tickers := make([]string, 0, len(signals))
	minDate := signals[0].FilingDate
	for _, s := range signals {
		if s.FilingDate.Before(minDate) {
			minDate = s.FilingDate
		}
		if _, ok := seen[s.Ticker]; ok {
			continue
		}
		seen[s.Ticker] = struct{}{}
		tickers = append(tickers, s.Ticker)
	}
	return tickers, minDate
}

// sortPeriods orders periods ascending with HoldToEnd last
func sortPeriods(periods []int) {
	sort.Slice(periods, func(i, j int) bool {
		a, b := periods[i], periods[j]
		if a == HoldToEnd {
			return false
		}
		if b == HoldToEnd {
			return true
		}
		return a < b
	})
}
