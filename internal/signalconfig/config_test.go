package signalconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoad_ShippedConfigMatchesDefault(t *testing.T) {
	path := "../../configs/signals.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)
	assert.Equal(t, Default(), cfg)

	hash, err := Hash(cfg)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	// 동일 설정 → 동일 해시
	defaultHash, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, defaultHash, hash)
}

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Validate(Default()))
	assert.Empty(t, Warn(Default()))
}

func TestParse_UnknownFieldFails(t *testing.T) {
	yamlData := []byte(`
executive_weights:
  CEO: 1.0
scoring:
  min_signal_scor: 2.0
`)
	_, err := Parse(yamlData)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_signal_scor")
}

// defaultYAML returns Default() as a generic YAML tree
func defaultYAML(t *testing.T) map[string]interface{} {
	t.Helper()
	data, err := yaml.Marshal(Default())
	require.NoError(t, err)

	var tree map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &tree))
	return tree
}

func TestParse_DefaultRoundTrip(t *testing.T) {
	data, err := yaml.Marshal(defaultYAML(t))
	require.NoError(t, err)

	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_MissingRequiredKey(t *testing.T) {
	for _, key := range RequiredKeys {
		key := key
		t.Run(key, func(t *testing.T) {
			tree := defaultYAML(t)
			parts := strings.Split(key, ".")
			if len(parts) == 1 {
				delete(tree, parts[0])
			} else {
				section, ok := tree[parts[0]].(map[string]interface{})
				require.True(t, ok, "section %s", parts[0])
				delete(section, parts[1])
			}

			data, err := yaml.Marshal(tree)
			require.NoError(t, err)

			_, err = Parse(data)
			require.Error(t, err)

			var ve ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, key, ve.Field)
			assert.Equal(t, "required", ve.Message)
		})
	}
}

func TestParse_MissingSections(t *testing.T) {
	tests := []struct {
		section string
		field   string
	}{
		{"scoring", "scoring.min_signal_score"},
		{"thresholds", "thresholds.weak"},
		{"dollar_weight", "dollar_weight.base_amount"},
		{"backtest", "backtest.holding_periods"},
	}

	for _, tt := range tests {
		t.Run(tt.section, func(t *testing.T) {
			tree := defaultYAML(t)
			delete(tree, tt.section)

			data, err := yaml.Marshal(tree)
			require.NoError(t, err)

			_, err = Parse(data)
			var ve ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestParse_NullRequiredValue(t *testing.T) {
	tree := defaultYAML(t)
	tree["filtering"].(map[string]interface{})["min_trade_value"] = nil

	data, err := yaml.Marshal(tree)
	require.NoError(t, err)

	_, err = Parse(data)
	var ve ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "filtering.min_trade_value", ve.Field)
}

func TestParse_EmptyDocument(t *testing.T) {
	_, err := Parse([]byte(""))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHash_ChangesWithConfig(t *testing.T) {
	a := Default()
	b := Default()
	b.Scoring.MinSignalScore = 3.0

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)
}

func TestValidate(t *testing.T) {
	negative := -1.0

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no executive weights", func(c *Config) { c.ExecutiveWeights = nil }, "executive_weights"},
		{"executive weight above 1", func(c *Config) { c.ExecutiveWeights["CEO"] = 1.5 }, "executive_weights[CEO]"},
		{"no cluster weights", func(c *Config) { c.ClusterWeights = nil }, "cluster_weights"},
		{"cluster size out of range", func(c *Config) { c.ClusterWeights[6] = 2.5 }, "cluster_weights[6]"},
		{"negative min trade value", func(c *Config) { c.Filtering.MinTradeValue = -1 }, "filtering.min_trade_value"},
		{"negative max market cap", func(c *Config) { c.Filtering.MaxMarketCapBillions = &negative }, "filtering.max_market_cap_billions"},
		{"zero cluster window", func(c *Config) { c.Filtering.ClusterWindowDays = 0 }, "filtering.cluster_window_days"},
		{"zero base amount", func(c *Config) { c.DollarWeight.BaseAmount = 0 }, "dollar_weight.base_amount"},
		{"zero baseline pct", func(c *Config) { c.MarketCapWeight.BaselinePct = 0 }, "market_cap_weight.baseline_pct"},
		{"min above max", func(c *Config) { c.MarketCapWeight.MinWeight = 4 }, "market_cap_weight"},
		{"neutral outside bounds", func(c *Config) { c.MarketCapWeight.MaxWeight = 0.9 }, "market_cap_weight"},
		{"negative min score", func(c *Config) { c.Scoring.MinSignalScore = -0.1 }, "scoring.min_signal_score"},
		{"thresholds out of order", func(c *Config) { c.Thresholds.Watch = 10 }, "thresholds"},
		{"no holding periods", func(c *Config) { c.Backtest.HoldingPeriods = nil }, "backtest.holding_periods"},
		{"zero holding period", func(c *Config) { c.Backtest.HoldingPeriods = []int{5, 0} }, "backtest.holding_periods[1]"},
		{"commission above 1", func(c *Config) { c.Backtest.CommissionPct = 2 }, "backtest.commission_pct"},
		{"negative min trades", func(c *Config) { c.Performance.MinTrades = -1 }, "insider_performance.min_trades"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var ve ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidate_HoldToLastBarAllowed(t *testing.T) {
	cfg := Default()
	cfg.Backtest.HoldingPeriods = []int{5, -1}
	assert.NoError(t, Validate(cfg))
}

func TestWarn(t *testing.T) {
	cfg := Default()
	delete(cfg.ClusterWeights, 5)
	cfg.Backtest.CommissionPct = 0
	cfg.Backtest.SlippagePct = 0
	cfg.Backtest.BenchmarkTicker = ""

	codes := make(map[string]bool)
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}

	assert.True(t, codes["NO_5PLUS_BUCKET"])
	assert.True(t, codes["ZERO_COSTS"])
	assert.True(t, codes["NO_BENCHMARK"])
	assert.False(t, codes["WIDE_CLUSTER_WINDOW"])
}

func TestHelpers(t *testing.T) {
	cfg := Default()

	titles := cfg.ExecutiveTitles()
	assert.Len(t, titles, len(cfg.ExecutiveWeights))
	assert.IsIncreasing(t, titles)

	assert.InDelta(t, 0.006, cfg.Backtest.RoundTripCost(), 1e-12)

	assert.Zero(t, cfg.Filtering.MaxMarketCapUSD())
	billions := 200.0
	cfg.Filtering.MaxMarketCapBillions = &billions
	assert.Equal(t, 200e9, cfg.Filtering.MaxMarketCapUSD())
}
