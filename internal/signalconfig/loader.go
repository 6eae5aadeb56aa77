package signalconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

// Load reads YAML file and returns Config with raw bytes
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read signal config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes and validates YAML bytes
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode signal config: %w", err)
	}

	// 누락된 키는 0으로 디코딩되므로 Validate 전에 존재 여부부터 확인
	if err := checkRequired(data); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RequiredKeys must be present (and non-null) in every signal config file.
// 점수 파라미터는 기본값으로 채우지 않음
var RequiredKeys = []string{
	"executive_weights",
	"cluster_weights",
	"filtering.min_trade_value",
	"filtering.min_market_cap_pct",
	"filtering.cluster_window_days",
	"dollar_weight.base_amount",
	"dollar_weight.log_multiplier",
	"market_cap_weight.baseline_pct",
	"market_cap_weight.log_multiplier",
	"market_cap_weight.min_weight",
	"market_cap_weight.max_weight",
	"scoring.min_signal_score",
	"thresholds.weak",
	"thresholds.watch",
	"thresholds.strong_buy",
	"backtest.holding_periods",
	"backtest.commission_pct",
	"backtest.slippage_pct",
	"backtest.risk_free_rate",
}

// checkRequired returns a ValidationError for the first missing required key
func checkRequired(data []byte) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("decode signal config: %w", err)
	}

	var doc *yaml.Node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		doc = root.Content[0]
	}

	for _, key := range RequiredKeys {
		if !hasKey(doc, strings.Split(key, ".")) {
			return ValidationError{key, "required"}
		}
	}
	return nil
}

func hasKey(node *yaml.Node, path []string) bool {
	for _, part := range path {
		if node == nil || node.Kind != yaml.MappingNode {
			return false
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == part {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil || next.Tag == "!!null" {
			return false
		}
		node = next
	}
	return true
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: encoding/json은 map 키를 정렬하므로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Default returns the shipped configuration (configs/signals.yaml)
func Default() *Config {
	return &Config{
		ExecutiveWeights: map[string]float64{
			"CEO":                     1.0,
			"Chief Executive Officer": 1.0,
			"CFO":                     1.0,
			"Chief Financial Officer": 1.0,
			"President":               1.0,
			"Chairman":                1.0,
			"COB":                     1.0,
			"COO":                     0.8,
			"Chief Operating Officer": 0.8,
			"EVP":                     0.5,
			"SVP":                     0.5,
			"VP":                      0.5,
			"Vice President":          0.5,
			"Director":                0.3,
			"10% Owner":               0.2,
		},
		ClusterWeights: map[int]float64{
			1: 1.0,
			2: 1.3,
			3: 1.6,
			4: 1.8,
			5: 2.0,
		},
		Filtering: Filtering{
			MinTradeValue:     100_000,
			MinMarketCapPct:   0,
			ClusterWindowDays: 7,
		},
		DollarWeight: DollarWeight{
			BaseAmount:    100_000,
			LogMultiplier: 0.5,
		},
		MarketCapWeight: MarketCapWeight{
			BaselinePct:   0.00001,
			LogMultiplier: 0.5,
			MinWeight:     0.5,
			MaxWeight:     3.0,
		},
		Scoring: Scoring{
			MinSignalScore: 2.0,
		},
		Thresholds: contracts.CategoryCutoffs{
			Weak:      3,
			Watch:     5,
			StrongBuy: 7,
		},
		Backtest: Backtest{
			HoldingPeriods:  []int{5, 21, 63, 126},
			CommissionPct:   0.002,
			SlippagePct:     0.001,
			RiskFreeRate:    0.04,
			BenchmarkTicker: "^GSPC",
		},
		Performance: Performance{
			HoldingPeriods: []int{5, 21, 63, 126},
			MinTrades:      3,
			RefreshDays:    7,
		},
	}
}
