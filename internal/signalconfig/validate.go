package signalconfig

import (
	"fmt"
	"strings"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단). 점수 파라미터는 조용히 기본값으로 대체하지 않음
func Validate(cfg *Config) error {
	// === Executive weights ===
	if len(cfg.ExecutiveWeights) == 0 {
		return ValidationError{"executive_weights", "required"}
	}
	for title, w := range cfg.ExecutiveWeights {
		if strings.TrimSpace(title) == "" {
			return ValidationError{"executive_weights", "title must not be empty"}
		}
		if err := validateUnit(w, fmt.Sprintf("executive_weights[%s]", title)); err != nil {
			return err
		}
	}

	// === Cluster weights ===
	if len(cfg.ClusterWeights) == 0 {
		return ValidationError{"cluster_weights", "required"}
	}
	for size, w := range cfg.ClusterWeights {
		if size < 1 || size > 5 {
			return ValidationError{fmt.Sprintf("cluster_weights[%d]", size), "size must be in [1, 5] (5 = 5+)"}
		}
		if w <= 0 {
			return ValidationError{fmt.Sprintf("cluster_weights[%d]", size), "must be > 0"}
		}
	}

	// === Filtering ===
	f := cfg.Filtering
	if f.MinTradeValue < 0 {
		return ValidationError{"filtering.min_trade_value", "must be >= 0"}
	}
	if f.MinMarketCapPct < 0 || f.MinMarketCapPct > 1 {
		return ValidationError{"filtering.min_market_cap_pct", "must be in range [0, 1]"}
	}
	if f.MaxMarketCapBillions != nil && *f.MaxMarketCapBillions < 0 {
		return ValidationError{"filtering.max_market_cap_billions", "must be >= 0"}
	}
	if f.ClusterWindowDays < 1 {
		return ValidationError{"filtering.cluster_window_days", "must be >= 1"}
	}

	// === Dollar weight ===
	if cfg.DollarWeight.BaseAmount <= 0 {
		return ValidationError{"dollar_weight.base_amount", "must be > 0"}
	}
	if cfg.DollarWeight.LogMultiplier < 0 {
		return ValidationError{"dollar_weight.log_multiplier", "must be >= 0"}
	}

	// === Market cap weight ===
	m := cfg.MarketCapWeight
	if m.BaselinePct <= 0 {
		return ValidationError{"market_cap_weight.baseline_pct", "must be > 0"}
	}
	if m.MinWeight <= 0 {
		return ValidationError{"market_cap_weight.min_weight", "must be > 0"}
	}
	if m.MinWeight > m.MaxWeight {
		return ValidationError{"market_cap_weight", "min_weight must be <= max_weight"}
	}
	if m.MinWeight > 1 || m.MaxWeight < 1 {
		return ValidationError{"market_cap_weight", "neutral weight 1.0 must lie within [min_weight, max_weight]"}
	}

	// === Scoring ===
	if cfg.Scoring.MinSignalScore < 0 {
		return ValidationError{"scoring.min_signal_score", "must be >= 0"}
	}

	t := cfg.Thresholds
	if !(t.Weak <= t.Watch && t.Watch <= t.StrongBuy) {
		return ValidationError{"thresholds", "must satisfy weak <= watch <= strong_buy"}
	}

	// === Backtest ===
	b := cfg.Backtest
	if err := validateHoldingPeriods(b.HoldingPeriods, "backtest.holding_periods"); err != nil {
		return err
	}
	if err := validateUnit(b.CommissionPct, "backtest.commission_pct"); err != nil {
		return err
	}
	if err := validateUnit(b.SlippagePct, "backtest.slippage_pct"); err != nil {
		return err
	}
	if b.RiskFreeRate < 0 || b.RiskFreeRate > 1 {
		return ValidationError{"backtest.risk_free_rate", "must be in range [0, 1]"}
	}

	// === Insider performance ===
	if len(cfg.Performance.HoldingPeriods) > 0 {
		if err := validateHoldingPeriods(cfg.Performance.HoldingPeriods, "insider_performance.holding_periods"); err != nil {
			return err
		}
	}
	if cfg.Performance.MinTrades < 0 {
		return ValidationError{"insider_performance.min_trades", "must be >= 0"}
	}
	if cfg.Performance.RefreshDays < 0 {
		return ValidationError{"insider_performance.refresh_days", "must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if _, ok := cfg.ClusterWeights[5]; !ok {
		warnings = append(warnings, Warning{
			Code:    "NO_5PLUS_BUCKET",
			Message: "cluster_weights has no 5+ bucket: clusters of 5 or more insiders get weight 1.0",
		})
	}

	if cfg.Filtering.ClusterWindowDays > 30 {
		warnings = append(warnings, Warning{
			Code:    "WIDE_CLUSTER_WINDOW",
			Message: "cluster window > 30 days: unrelated purchases may be merged",
		})
	}

	// 비용 0 가정은 낙관적
	if cfg.Backtest.RoundTripCost() == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_COSTS",
			Message: "commission and slippage are both 0: backtest returns are optimistic",
		})
	}

	if strings.TrimSpace(cfg.Backtest.BenchmarkTicker) == "" {
		warnings = append(warnings, Warning{
			Code:    "NO_BENCHMARK",
			Message: "backtest.benchmark_ticker is empty: alpha will not be computed",
		})
	}

	if cfg.Scoring.MinSignalScore == 0 {
		warnings = append(warnings, Warning{
			Code:    "ALL_ACTIONABLE",
			Message: "min_signal_score is 0: every signal is actionable",
		})
	}

	return warnings
}

// === Helper Functions ===

// validateUnit는 값이 0~1 범위인지 검증
func validateUnit(v float64, field string) error {
	if v < 0 || v > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}

func validateHoldingPeriods(periods []int, field string) error {
	if len(periods) == 0 {
		return ValidationError{field, "must not be empty"}
	}
	for i, p := range periods {
		if p == 0 || p < -1 {
			return ValidationError{fmt.Sprintf("%s[%d]", field, i), "must be > 0 or -1 (hold to last bar)"}
		}
	}
	return nil
}
