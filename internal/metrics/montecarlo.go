package metrics

import (
	"math/rand"
	"sort"
)

// =============================================================================
// Bootstrap (Monte Carlo) confidence of the average trade return
// =============================================================================

// MonteCarloConfig 부트스트랩 설정
type MonteCarloConfig struct {
	Simulations int   `json:"simulations"`
	Seed        int64 `json:"seed"` // 고정 seed = 재현 가능한 결과
}

// DefaultMonteCarloConfig 1000회, 고정 seed
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{Simulations: 1000, Seed: 42}
}

// MonteCarloResult is the resampled distribution of the mean trade return
type MonteCarloResult struct {
	Simulations int     `json:"simulations"`
	MeanReturn  float64 `json:"mean_return"`
	StdDev      float64 `json:"std_dev"`
	P5          float64 `json:"p5"`
	P50         float64 `json:"p50"`
	P95         float64 `json:"p95"`
	ProbLoss    float64 `json:"prob_loss"` // 평균 수익률 < 0 인 시뮬레이션 비율
}

// MonteCarlo resamples trade returns with replacement
type MonteCarlo struct {
	config MonteCarloConfig
}

// NewMonteCarlo creates a bootstrap simulator
func NewMonteCarlo(config MonteCarloConfig) *MonteCarlo {
	if config.Simulations <= 0 {
		config.Simulations = DefaultMonteCarloConfig().Simulations
	}
	return &MonteCarlo{config: config}
}

// Simulate draws Simulations samples of len(returns) trades each and
// summarizes the distribution of their mean. Nil with fewer than 2 returns.
func (mc *MonteCarlo) Simulate(returns []float64) *MonteCarloResult {
	if len(returns) < 2 {
		return nil
	}

	// 호출마다 같은 seed로 시작해야 동일 입력 → 동일 결과
	rng := rand.New(rand.NewSource(mc.config.Seed))

	means := make([]float64, mc.config.Simulations)
	losses := 0
	for i := range means {
		sum := 0.0
		for range returns {
			sum += returns[rng.Intn(len(returns))]
		}
		means[i] = sum / float64(len(returns))
		if means[i] < 0 {
			losses++
		}
	}

	sorted := make([]float64, len(means))
	copy(sorted, means)
	sort.Float64s(sorted)

	return &MonteCarloResult{
		Simulations: mc.config.Simulations,
		MeanReturn:  Mean(means),
		StdDev:      StdDev(means),
		P5:          Percentile(sorted, 5),
		P50:         Percentile(sorted, 50),
		P95:         Percentile(sorted, 95),
		ProbLoss:    float64(losses) / float64(len(means)),
	}
}
