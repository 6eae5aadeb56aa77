package contracts

import (
	"context"
	"encoding/json"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// TransactionLoader supplies the pipeline with normalized transactions
type TransactionLoader interface {
	LoadTransactions(ctx context.Context) ([]Transaction, error)
}

// TransactionQuery filters transaction listings
type TransactionQuery struct {
	Ticker    string
	InsiderID int64
	Code      TransactionCode
	Since     time.Time
	Limit     int
}

// TransactionRepository manages insider transactions and their companies/insiders
type TransactionRepository interface {
	TransactionLoader
	ListTransactions(ctx context.Context, q TransactionQuery) ([]Transaction, error)
	SaveTransactions(ctx context.Context, txns []Transaction) (int, error)
	GetCompany(ctx context.Context, ticker string) (*Company, error)
}

// InsiderRepository lists insiders for performance tracking
type InsiderRepository interface {
	GetInsider(ctx context.Context, id int64) (*Insider, error)
	InsidersWithMinPurchases(ctx context.Context, minTrades int) ([]Insider, error)
	CountTransactions(ctx context.Context, insiderID int64, code TransactionCode) (int, error)
}

// MarketCapRepository persists market cap snapshots
type MarketCapRepository interface {
	GetMarketCap(ctx context.Context, ticker string, date time.Time) (*float64, error)
	SaveMarketCap(ctx context.Context, ticker string, date time.Time, value float64, source string) error
}

// PriceRepository stores daily bars fetched from the price source
type PriceRepository interface {
	GetBars(ctx context.Context, ticker string, from, to time.Time) ([]PriceBar, error)
	SaveBars(ctx context.Context, ticker string, bars []PriceBar) error
}

// InsiderPerformance is the track record of a single insider
type InsiderPerformance struct {
	InsiderID        int64      `json:"insider_id"`
	InsiderName      string     `json:"insider_name,omitempty"`
	CompanyID        int64      `json:"company_id"`
	WinRate1W        *float64   `json:"win_rate_1w"`
	WinRate1M        *float64   `json:"win_rate_1m"`
	WinRate3M        *float64   `json:"win_rate_3m"`
	WinRate6M        *float64   `json:"win_rate_6m"`
	AvgReturn        *float64   `json:"avg_return"`
	AlphaVsSPY       *float64   `json:"alpha_vs_spy"`
	TotalBuys        int        `json:"total_buys"`
	TotalSells       int        `json:"total_sells"`
	LastCalculatedAt *time.Time `json:"last_calculated_at"`
}

// WinRate returns the stored win rate for a period label (1w, 1m, 3m, 6m)
func (p *InsiderPerformance) WinRate(period string) *float64 {
	switch period {
	case "1w":
		return p.WinRate1W
	case "1m":
		return p.WinRate1M
	case "3m":
		return p.WinRate3M
	case "6m":
		return p.WinRate6M
	default:
		return nil
	}
}

// TrackRecord is the win rate and alpha used for alert scoring
type TrackRecord struct {
	WinRate float64 `json:"win_rate"`
	Alpha   float64 `json:"alpha"`
}

// TrackRecordRepository reads stored performance for alert scoring
type TrackRecordRepository interface {
	GetPerformance(ctx context.Context, insiderID int64) (*InsiderPerformance, error)
	// CompanyTrackRecord averages win rate and alpha over a company's insiders; nil when none
	CompanyTrackRecord(ctx context.Context, companyID int64, period string) (*TrackRecord, error)
}

// PerformanceRepository persists insider performance rows
type PerformanceRepository interface {
	GetPerformance(ctx context.Context, insiderID int64) (*InsiderPerformance, error)
	SavePerformance(ctx context.Context, perf *InsiderPerformance) error
}

// BacktestRun is a persisted backtest result
type BacktestRun struct {
	ID                string          `json:"id"`
	ConfigHash        string          `json:"config_hash"`
	HoldingPeriodDays int             `json:"holding_period_days"`
	TotalTrades       int             `json:"total_trades"`
	WinRate           float64         `json:"win_rate"`
	AvgNetReturn      float64         `json:"avg_net_return"`
	Alpha             *float64        `json:"alpha"`
	Result            json.RawMessage `json:"result"`
	CreatedAt         time.Time       `json:"created_at"`
}

// BacktestRunRepository stores backtest runs
type BacktestRunRepository interface {
	SaveRun(ctx context.Context, run *BacktestRun) error
	GetRun(ctx context.Context, id string) (*BacktestRun, error)
	ListRuns(ctx context.Context, limit int) ([]BacktestRun, error)
}
