package contracts

import "time"

// Signal is a transaction annotated by the filter, cluster and score stages.
// Stages return new values; the embedded Transaction is never modified.
// ⭐ SSOT: 필터 → 클러스터 → 스코어 단계 간 데이터 전달
type Signal struct {
	Transaction

	ExecutiveWeight     float64           `json:"executive_weight"`
	DollarWeight        float64           `json:"dollar_weight"`
	ClusterID           string            `json:"cluster_id"`
	ClusterSize         int               `json:"cluster_size"`
	ClusterWeight       float64           `json:"cluster_weight"`
	MarketCapWeight     float64           `json:"market_cap_weight"`
	TradePctOfMarketCap *float64          `json:"trade_pct_of_market_cap"`
	CompositeScore      float64           `json:"composite_score"`
	IsActionable        bool              `json:"is_actionable"`

	// 알림 점수: conviction (0-3) + track record (0-5)
	ConvictionScore  int               `json:"conviction_score"`
	TrackRecordScore int               `json:"track_record_score"`
	AlertScore       int               `json:"alert_score"`
	Category         ThresholdCategory `json:"category,omitempty"`
}

// NewSignal wraps a transaction with neutral weights
func NewSignal(txn Transaction) Signal {
	return Signal{
		Transaction:     txn,
		DollarWeight:    1.0,
		ClusterSize:     1,
		ClusterWeight:   1.0,
		MarketCapWeight: 1.0,
	}
}

// TradeSignal converts the signal into the minimal projection consumed by the backtester
func (s Signal) TradeSignal() TradeSignal {
	return TradeSignal{
		Ticker:         s.Ticker,
		FilingDate:     s.FilingDate,
		TradeDate:      s.TradeDate,
		InsiderName:    s.InsiderName,
		OfficerTitle:   s.OfficerTitle,
		TotalValue:     s.Value(),
		CompositeScore: s.CompositeScore,
		ClusterSize:    s.ClusterSize,
	}
}

// TradeSignal is the backtest input, decoupled from persistence
type TradeSignal struct {
	Ticker         string    `json:"ticker"`
	FilingDate     time.Time `json:"filing_date"`
	TradeDate      time.Time `json:"trade_date"`
	InsiderName    string    `json:"insider_name"`
	OfficerTitle   string    `json:"officer_title"`
	TotalValue     float64   `json:"total_value"`
	CompositeScore float64   `json:"composite_score"`
	ClusterSize    int       `json:"cluster_size"`
}

// TradeSignals projects a signal list for the backtester
func TradeSignals(signals []Signal) []TradeSignal {
	out := make([]TradeSignal, 0, len(signals))
	for _, s := range signals {
		out = append(out, s.TradeSignal())
	}
	return out
}

// ThresholdCategory buckets an alert score (conviction + track record)
type ThresholdCategory string

const (
	CategoryIgnore    ThresholdCategory = "ignore"
	CategoryWeak      ThresholdCategory = "weak"
	CategoryWatch     ThresholdCategory = "watch"
	CategoryStrongBuy ThresholdCategory = "strong_buy"
)

// CategoryCutoffs holds the lower bounds of each category
type CategoryCutoffs struct {
	Weak      float64 `yaml:"weak" json:"weak"`
	Watch     float64 `yaml:"watch" json:"watch"`
	StrongBuy float64 `yaml:"strong_buy" json:"strong_buy"`
}

// Categorize maps a score to its category
func (c CategoryCutoffs) Categorize(score float64) ThresholdCategory {
	switch {
	case score >= c.StrongBuy:
		return CategoryStrongBuy
	case score >= c.Watch:
		return CategoryWatch
	case score >= c.Weak:
		return CategoryWeak
	default:
		return CategoryIgnore
	}
}
