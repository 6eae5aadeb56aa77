package performance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tossww/open-insider-trader/internal/backtest"
	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

var (
	ErrInsiderNotFound = errors.New("insider not found")
	ErrNoPurchases     = errors.New("insider has no purchases")
	ErrNoResults       = errors.New("no holding period produced trades")
)

// DefaultPeriods are 1w, 1m, 3m and 6m in trading days
var DefaultPeriods = []int{5, 21, 63, 126}

const (
	// DefaultRefreshAfter 최근 계산 결과 재사용 기간
	DefaultRefreshAfter = 7 * 24 * time.Hour

	// DefaultMinTrades is the purchase count required for bulk updates
	DefaultMinTrades = 3
)

// PeriodName maps trading days to the stored column suffix
func PeriodName(days int) string {
	switch days {
	case 5:
		return "1w"
	case 21:
		return "1m"
	case 63:
		return "3m"
	case 126:
		return "6m"
	default:
		return fmt.Sprintf("%dd", days)
	}
}

// primaryOrder 대표 기간 우선순위 (avg_return, alpha)
var primaryOrder = []string{"3m", "1m", "6m"}

// Backtester is the part of backtest.Engine the tracker needs
type Backtester interface {
	BacktestSignals(ctx context.Context, signals []contracts.TradeSignal, holdingDays int) *backtest.Result
	AddBenchmarkComparison(ctx context.Context, result *backtest.Result) *backtest.Result
}

// TransactionLister lists stored transactions
type TransactionLister interface {
	ListTransactions(ctx context.Context, q contracts.TransactionQuery) ([]contracts.Transaction, error)
}

// PeriodStats is the outcome of one holding period
type PeriodStats struct {
	Days        int      `json:"days"`
	WinRate     float64  `json:"win_rate"`
	AvgReturn   float64  `json:"avg_return"`
	Alpha       *float64 `json:"alpha"`
	TotalTrades int      `json:"total_trades"`
}

// Tracker computes and stores the historical track record of insiders.
// ⭐ SSOT: 내부자별 성과 계산은 여기서만
type Tracker struct {
	insiders     contracts.InsiderRepository
	txns         TransactionLister
	store        contracts.PerformanceRepository
	engine       Backtester
	periods      []int
	refreshAfter time.Duration
	now          func() time.Time
	logger       *logger.Logger
}

// Option configures a Tracker
type Option func(*Tracker)

// WithPeriods overrides the holding periods
func WithPeriods(periods []int) Option {
	return func(t *Tracker) {
		if len(periods) > 0 {
			t.periods = periods
		}
	}
}

// WithRefreshAfter overrides the freshness window
func WithRefreshAfter(d time.Duration) Option {
	return func(t *Tracker) { t.refreshAfter = d }
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a new performance tracker
func NewTracker(insiders contracts.InsiderRepository, txns TransactionLister, store contracts.PerformanceRepository, engine Backtester, log *logger.Logger, opts ...Option) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	t := &Tracker{
		insiders:     insiders,
		txns:         txns,
		store:        store,
		engine:       engine,
		periods:      DefaultPeriods,
		refreshAfter: DefaultRefreshAfter,
		now:          time.Now,
		logger:       log.Module("performance"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Calculate backtests every purchase of the insider for each period
func (t *Tracker) Calculate(ctx context.Context, insiderID int64) (*contracts.InsiderPerformance, error) {
	insider, err := t.insiders.GetInsider(ctx, insiderID)
	if err != nil {
		return nil, fmt.Errorf("get insider %d: %w", insiderID, err)
	}
	if insider == nil {
		return nil, fmt.Errorf("%w: %d", ErrInsiderNotFound, insiderID)
	}

	buys, err := t.txns.ListTransactions(ctx, contracts.TransactionQuery{
		InsiderID: insiderID,
		Code:      contracts.CodePurchase,
	})
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	if len(buys) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNoPurchases, insiderID)
	}

	signals := toSignals(insider, buys)

	log := t.logger.WithFields(map[string]interface{}{
		"insider_id": insiderID,
		"insider":    insider.Name,
		"trades":     len(signals),
	})
	log.Info("Calculating insider performance")

	stats := make(map[string]PeriodStats, len(t.periods))
	for _, days := range t.periods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := t.engine.BacktestSignals(ctx, signals, days)
		if result == nil || result.TotalTrades == 0 {
			log.WithField("period", PeriodName(days)).Warn("No trades for period")
			continue
		}
		t.engine.AddBenchmarkComparison(ctx, result)

		stats[PeriodName(days)] = PeriodStats{
			Days:        days,
			WinRate:     result.WinRate,
			AvgReturn:   result.AvgNetReturn,
			Alpha:       result.Alpha,
			TotalTrades: result.TotalTrades,
		}
	}

	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: insider %d", ErrNoResults, insiderID)
	}

	sells, err := t.insiders.CountTransactions(ctx, insiderID, contracts.CodeSale)
	if err != nil {
		return nil, fmt.Errorf("count sales: %w", err)
	}

	perf := &contracts.InsiderPerformance{
		InsiderID:   insider.ID,
		InsiderName: insider.Name,
		CompanyID:   insider.CompanyID,
		WinRate1W:   winRate(stats, "1w"),
		WinRate1M:   winRate(stats, "1m"),
		WinRate3M:   winRate(stats, "3m"),
		WinRate6M:   winRate(stats, "6m"),
		TotalBuys:   len(buys),
		TotalSells:  sells,
	}
	if primary, ok := primaryStats(stats); ok {
		avg := primary.AvgReturn
		perf.AvgReturn = &avg
		perf.AlphaVsSPY = primary.Alpha
	}

	return perf, nil
}

// Update recalculates and stores the insider's performance. A stored row
// younger than the refresh window is kept unless force is set; the bool
// reports whether a recalculation happened.
func (t *Tracker) Update(ctx context.Context, insiderID int64, force bool) (bool, error) {
	existing, err := t.store.GetPerformance(ctx, insiderID)
	if err != nil {
		return false, fmt.Errorf("get performance: %w", err)
	}

	if existing != nil && !force && existing.LastCalculatedAt != nil {
		if t.now().Sub(*existing.LastCalculatedAt) < t.refreshAfter {
			t.logger.WithField("insider_id", insiderID).Debug("Performance is recent, skipping")
			return false, nil
		}
	}

	perf, err := t.Calculate(ctx, insiderID)
	if err != nil {
		return false, err
	}

	calculatedAt := t.now().UTC()
	perf.LastCalculatedAt = &calculatedAt

	if err := t.store.SavePerformance(ctx, perf); err != nil {
		return false, fmt.Errorf("save performance: %w", err)
	}

	t.logger.WithField("insider_id", insiderID).Info("Updated insider performance")
	return true, nil
}

// UpdateAll refreshes every insider with at least minTrades purchases.
// Returns the number of insiders whose stored row is current afterwards.
func (t *Tracker) UpdateAll(ctx context.Context, minTrades int, force bool) (int, error) {
	if minTrades <= 0 {
		minTrades = DefaultMinTrades
	}

	insiders, err := t.insiders.InsidersWithMinPurchases(ctx, minTrades)
	if err != nil {
		return 0, fmt.Errorf("list insiders: %w", err)
	}

	t.logger.WithFields(map[string]interface{}{
		"insiders":   len(insiders),
		"min_trades": minTrades,
	}).Info("Updating insider performance")

	current, recalculated := 0, 0
	for _, insider := range insiders {
		if err := ctx.Err(); err != nil {
			return current, err
		}

		updated, err := t.Update(ctx, insider.ID, force)
		if err != nil {
			t.logger.WithError(err).WithFields(map[string]interface{}{
				"insider_id": insider.ID,
				"insider":    insider.Name,
			}).Warn("Performance update failed")
			continue
		}
		current++
		if updated {
			recalculated++
		}
	}

	t.logger.WithFields(map[string]interface{}{
		"current":      current,
		"recalculated": recalculated,
	}).Info("Insider performance update completed")

	return current, nil
}

func toSignals(insider *contracts.Insider, buys []contracts.Transaction) []contracts.TradeSignal {
	signals := make([]contracts.TradeSignal, 0, len(buys))
	for _, txn := range buys {
		title := txn.OfficerTitle
		if title == "" {
			title = insider.OfficerTitle
		}
		if title == "" {
			title = "Unknown"
		}
		signals = append(signals, contracts.TradeSignal{
			Ticker:       txn.Ticker,
			FilingDate:   txn.FilingDate,
			TradeDate:    txn.TradeDate,
			InsiderName:  insider.Name,
			OfficerTitle: title,
			TotalValue:   txn.Value(),
			ClusterSize:  1,
		})
	}
	return signals
}

func winRate(stats map[string]PeriodStats, name string) *float64 {
	s, ok := stats[name]
	if !ok {
		return nil
	}
	v := s.WinRate
	return &v
}

func primaryStats(stats map[string]PeriodStats) (PeriodStats, bool) {
	for _, name := range primaryOrder {
		if s, ok := stats[name]; ok {
			return s, true
		}
	}
	return PeriodStats{}, false
}
