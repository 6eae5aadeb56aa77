package filters

import (
	"context"
	"fmt"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/executive"
	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// Stats counts survivors after each filter stage
type Stats struct {
	TotalInput         int `json:"total_input"`
	Stage1Purchases    int `json:"stage_1_purchases"`
	Stage2MinValue     int `json:"stage_2_min_value"`
	Stage3Executive    int `json:"stage_3_executive"`
	Stage4MarketCapPct int `json:"stage_4_market_cap_pct"`
	FinalFiltered      int `json:"final_filtered"`
	MissingMarketCap   int `json:"missing_market_cap"`
	MissingTotalValue  int `json:"missing_total_value"`
}

// StageCount is one step of the filtering funnel
type StageCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stages returns the funnel in stage order. Counts never increase.
func (s Stats) Stages() []StageCount {
	return []StageCount{
		{"total_input", s.TotalInput},
		{"stage_1_purchases", s.Stage1Purchases},
		{"stage_2_min_value", s.Stage2MinValue},
		{"stage_3_executive", s.Stage3Executive},
		{"stage_4_market_cap_pct", s.Stage4MarketCapPct},
		{"final_filtered", s.FinalFiltered},
	}
}

// Filter applies the sequential filter stages to raw transactions
// ⭐ SSOT: 시그널 필터링 단계는 여기서만
type Filter struct {
	cfg        signalconfig.Filtering
	classifier *executive.Classifier
	loader     contracts.TransactionLoader
	logger     *logger.Logger
}

// New creates a filter. loader may be nil when only Apply is used.
func New(cfg *signalconfig.Config, classifier *executive.Classifier, loader contracts.TransactionLoader, log *logger.Logger) *Filter {
	if log == nil {
		log = logger.Nop()
	}
	if classifier == nil {
		classifier = executive.NewClassifier(cfg, log)
	}
	return &Filter{
		cfg:        cfg.Filtering,
		classifier: classifier,
		loader:     loader,
		logger:     log.Module("filters"),
	}
}

// FilterTransactions loads transactions from the repository and applies every stage
func (f *Filter) FilterTransactions(ctx context.Context) ([]contracts.Signal, Stats, error) {
	if f.loader == nil {
		return nil, Stats{}, fmt.Errorf("filters: no transaction loader configured")
	}

	txns, err := f.loader.LoadTransactions(ctx)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("load transactions: %w", err)
	}

	signals, stats := f.Apply(txns)
	return signals, stats, nil
}

// Apply runs the stages in order and returns new signals in input order.
//
//  1. purchases only (code P)
//  2. total value known and >= min_trade_value
//  3. executive weight > 0
//  4. trade value / market cap >= min_market_cap_pct (when > 0); unknown market cap is kept
//  5. market cap <= max_market_cap_billions (when set); unknown market cap is kept
func (f *Filter) Apply(txns []contracts.Transaction) ([]contracts.Signal, Stats) {
	stats := Stats{TotalInput: len(txns)}

	// Stage 1: 매수만
	purchases := make([]contracts.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.TransactionCode.IsPurchase() {
			purchases = append(purchases, t)
		}
	}
	stats.Stage1Purchases = len(purchases)

	// Stage 2: 최소 거래 금액
	valued := make([]contracts.Transaction, 0, len(purchases))
	for _, t := range purchases {
		if t.TotalValue == nil {
			stats.MissingTotalValue++
			continue
		}
		if *t.TotalValue >= f.cfg.MinTradeValue {
			valued = append(valued, t)
		}
	}
	stats.Stage2MinValue = len(valued)

	// Stage 3: 임원 가중치
	signals := make([]contracts.Signal, 0, len(valued))
	for _, t := range valued {
		weight := f.classifier.Weight(t.OfficerTitle)
		if weight <= 0 {
			continue
		}
		sig := contracts.NewSignal(t)
		sig.ExecutiveWeight = weight
		signals = append(signals, sig)
	}
	stats.Stage3Executive = len(signals)

	// Stage 4: 시가총액 대비 거래 비율
	sized := make([]contracts.Signal, 0, len(signals))
	for _, s := range signals {
		if !s.HasMarketCap() {
			stats.MissingMarketCap++
			s.TradePctOfMarketCap = nil
			sized = append(sized, s)
			continue
		}

		pct := s.Value() / *s.MarketCapUSD
		s.TradePctOfMarketCap = &pct
		if f.cfg.MinMarketCapPct > 0 && pct < f.cfg.MinMarketCapPct {
			continue
		}
		sized = append(sized, s)
	}
	stats.Stage4MarketCapPct = len(sized)

	// Stage 5: 초대형주 제외 (시총 미상은 유지)
	final := sized
	if maxCap := f.cfg.MaxMarketCapUSD(); maxCap > 0 {
		final = make([]contracts.Signal, 0, len(sized))
		for _, s := range sized {
			if s.HasMarketCap() && *s.MarketCapUSD > maxCap {
				continue
			}
			final = append(final, s)
		}
	}
	stats.FinalFiltered = len(final)

	f.logger.WithFields(map[string]interface{}{
		"total_input":         stats.TotalInput,
		"purchases":           stats.Stage1Purchases,
		"min_value":           stats.Stage2MinValue,
		"executive":           stats.Stage3Executive,
		"market_cap_pct":      stats.Stage4MarketCapPct,
		"final":               stats.FinalFiltered,
		"missing_market_cap":  stats.MissingMarketCap,
		"missing_total_value": stats.MissingTotalValue,
	}).Info("Filtered transactions")

	return final, stats
}
