package scoring

import (
	"math"
	"sort"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// Summary describes a scored signal list
type Summary struct {
	TotalSignals      int     `json:"total_signals"`
	ActionableSignals int     `json:"actionable_signals"`
	AvgScore          float64 `json:"avg_score"`
	MaxScore          float64 `json:"max_score"`
	MinScore          float64 `json:"min_score"`
}

// Scorer combines executive, dollar, cluster and market cap weights
// ⭐ SSOT: 복합 점수 계산은 여기서만
type Scorer struct {
	dollar    signalconfig.DollarWeight
	marketCap signalconfig.MarketCapWeight
	minScore  float64
	logger    *logger.Logger
}

// NewScorer creates a scorer
func NewScorer(cfg *signalconfig.Config, log *logger.Logger) *Scorer {
	if log == nil {
		log = logger.Nop()
	}
	return &Scorer{
		dollar:    cfg.DollarWeight,
		marketCap: cfg.MarketCapWeight,
		minScore:  cfg.Scoring.MinSignalScore,
		logger:    log.Module("scoring"),
	}
}

// DollarWeight returns 1.0 for values at or below the base amount,
// otherwise 1 + k·log10(value/base). Never below 1.0.
func (s *Scorer) DollarWeight(value float64) float64 {
	if value <= 0 || value <= s.dollar.BaseAmount {
		return 1.0
	}
	return 1.0 + s.dollar.LogMultiplier*math.Log10(value/s.dollar.BaseAmount)
}

// MarketCapWeight returns 1.0 for an unknown or non-positive percentage,
// otherwise 1 + k·log10(pct/baseline) clamped to [min_weight, max_weight]
func (s *Scorer) MarketCapWeight(pct *float64) float64 {
	if pct == nil || *pct <= 0 {
		return 1.0
	}

	w := 1.0 + s.marketCap.LogMultiplier*math.Log10(*pct/s.marketCap.BaselinePct)
	return math.Max(s.marketCap.MinWeight, math.Min(s.marketCap.MaxWeight, w))
}

// Score returns a copy of sig with dollar weight, market cap weight,
// composite score and actionable flag set
func (s *Scorer) Score(sig contracts.Signal) contracts.Signal {
	sig.DollarWeight = s.DollarWeight(sig.Value())
	sig.MarketCapWeight = s.MarketCapWeight(sig.TradePctOfMarketCap)
	sig.CompositeScore = sig.ExecutiveWeight * sig.DollarWeight * sig.ClusterWeight * sig.MarketCapWeight
	sig.IsActionable = sig.CompositeScore >= s.minScore
	return sig
}

// ScoreAll scores every signal and returns them sorted by composite score
// descending. Ties keep their input order.
func (s *Scorer) ScoreAll(signals []contracts.Signal) []contracts.Signal {
	scored := make([]contracts.Signal, len(signals))
	for i, sig := range signals {
		scored[i] = s.Score(sig)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].CompositeScore > scored[j].CompositeScore
	})

	summary := Summarize(scored)
	s.logger.WithFields(map[string]interface{}{
		"total":      summary.TotalSignals,
		"actionable": summary.ActionableSignals,
		"avg_score":  summary.AvgScore,
		"max_score":  summary.MaxScore,
	}).Info("Scored signals")

	return scored
}

// Summarize computes score statistics. Empty input yields zeros.
func Summarize(signals []contracts.Signal) Summary {
	if len(signals) == 0 {
		return Summary{}
	}

	summary := Summary{
		TotalSignals: len(signals),
		MaxScore:     math.Inf(-1),
		MinScore:     math.Inf(1),
	}
	total := 0.0
	for _, sig := range signals {
		if sig.IsActionable {
			summary.ActionableSignals++
		}
		total += sig.CompositeScore
		summary.MaxScore = math.Max(summary.MaxScore, sig.CompositeScore)
		summary.MinScore = math.Min(summary.MinScore, sig.CompositeScore)
	}
	summary.AvgScore = total / float64(len(signals))

	return summary
}
