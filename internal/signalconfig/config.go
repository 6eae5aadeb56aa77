package signalconfig

import (
	"sort"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

// Config는 시그널 파이프라인과 백테스트의 전체 설정
// 시작 시 한 번 로드/검증되어 각 컴포넌트 생성자에 포인터로 전달됨
type Config struct {
	ExecutiveWeights map[string]float64        `yaml:"executive_weights" json:"executive_weights"`
	ClusterWeights   map[int]float64           `yaml:"cluster_weights" json:"cluster_weights"` // key 5 = 5명 이상
	Filtering        Filtering                 `yaml:"filtering" json:"filtering"`
	DollarWeight     DollarWeight              `yaml:"dollar_weight" json:"dollar_weight"`
	MarketCapWeight  MarketCapWeight           `yaml:"market_cap_weight" json:"market_cap_weight"`
	Scoring          Scoring                   `yaml:"scoring" json:"scoring"`
	Thresholds       contracts.CategoryCutoffs `yaml:"thresholds" json:"thresholds"`
	Backtest         Backtest                  `yaml:"backtest" json:"backtest"`
	Performance      Performance               `yaml:"insider_performance" json:"insider_performance"`
}

// Filtering 필터 단계 파라미터
type Filtering struct {
	MinTradeValue        float64  `yaml:"min_trade_value" json:"min_trade_value"`
	MinMarketCapPct      float64  `yaml:"min_market_cap_pct" json:"min_market_cap_pct"` // 0 = 비활성
	MaxMarketCapBillions *float64 `yaml:"max_market_cap_billions,omitempty" json:"max_market_cap_billions,omitempty"`
	ClusterWindowDays    int      `yaml:"cluster_window_days" json:"cluster_window_days"`
}

// DollarWeight 거래 금액 가중치: 1 + k·log10(value/base)
type DollarWeight struct {
	BaseAmount    float64 `yaml:"base_amount" json:"base_amount"`
	LogMultiplier float64 `yaml:"log_multiplier" json:"log_multiplier"`
}

// MarketCapWeight 시총 대비 비율 가중치: clamp(1 + k·log10(pct/baseline))
type MarketCapWeight struct {
	BaselinePct   float64 `yaml:"baseline_pct" json:"baseline_pct"`
	LogMultiplier float64 `yaml:"log_multiplier" json:"log_multiplier"`
	MinWeight     float64 `yaml:"min_weight" json:"min_weight"`
	MaxWeight     float64 `yaml:"max_weight" json:"max_weight"`
}

// Scoring 복합 점수 판정
type Scoring struct {
	MinSignalScore float64 `yaml:"min_signal_score" json:"min_signal_score"`
}

// Backtest 백테스트 비용과 기간
type Backtest struct {
	HoldingPeriods  []int   `yaml:"holding_periods" json:"holding_periods"` // 거래일, -1 = 마지막 봉까지
	CommissionPct   float64 `yaml:"commission_pct" json:"commission_pct"`   // 편도
	SlippagePct     float64 `yaml:"slippage_pct" json:"slippage_pct"`       // 편도
	RiskFreeRate    float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
	BenchmarkTicker string  `yaml:"benchmark_ticker" json:"benchmark_ticker"`
}

// RoundTripCost returns 2 × (commission + slippage)
func (b Backtest) RoundTripCost() float64 {
	return 2 * (b.CommissionPct + b.SlippagePct)
}

// Performance 내부자 트랙레코드 계산
type Performance struct {
	HoldingPeriods []int `yaml:"holding_periods" json:"holding_periods"`
	MinTrades      int   `yaml:"min_trades" json:"min_trades"`
	RefreshDays    int   `yaml:"refresh_days" json:"refresh_days"`
}

// ExecutiveTitles returns configured titles in sorted order
// map 순회 순서에 의존하지 않도록 정렬
func (c *Config) ExecutiveTitles() []string {
	titles := make([]string, 0, len(c.ExecutiveWeights))
	for title := range c.ExecutiveWeights {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

// MaxMarketCapUSD returns the mega-cap exclusion bound in dollars, or 0 when disabled
func (f Filtering) MaxMarketCapUSD() float64 {
	if f.MaxMarketCapBillions == nil || *f.MaxMarketCapBillions <= 0 {
		return 0
	}
	return *f.MaxMarketCapBillions * 1e9
}
