package metrics

import (
	"math"
	"sort"
)

// =============================================================================
// 통계 유틸리티
// =============================================================================

// Mean 평균 계산
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Sum 합계
func Sum(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

// StdDev 표본 표준편차 (ddof=1), 2개 미만이면 0
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

// Median 중앙값 (짝수 개면 가운데 두 값의 평균)
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Percentile(sortedCopy(values), 50)
}

// Percentile 백분위수 계산 (sorted는 오름차순)
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// 선형 보간
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Skewness 편향 왜도 (모집단 모멘트), 3개 미만이면 0
func Skewness(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	m2, m3, _ := centralMoments(values)
	if m2 == 0 {
		return 0
	}
	return m3 / math.Pow(m2, 1.5)
}

// Kurtosis 편향 초과 첨도 (Fisher), 4개 미만이면 0
func Kurtosis(values []float64) float64 {
	if len(values) < 4 {
		return 0
	}
	m2, _, m4 := centralMoments(values)
	if m2 == 0 {
		return 0
	}
	return m4/(m2*m2) - 3
}

func centralMoments(values []float64) (m2, m3, m4 float64) {
	mean := Mean(values)
	n := float64(len(values))
	for _, v := range values {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	return m2 / n, m3 / n, m4 / n
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// =============================================================================
// Historical VaR
// =============================================================================

// VaRResult VaR 계산 결과
// ⭐ SSOT: VaR/CVaR는 손실을 양수로 표현
// - VaR=0.05 → 95% 신뢰수준에서 트레이드당 최대 5% 손실
// - CVaR=0.07 → 5% tail에서 평균 7% 손실
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// CalculateVaR 트레이드 수익률 기반 Historical VaR
func CalculateVaR(returns []float64, confidence float64) VaRResult {
	if len(returns) == 0 {
		return VaRResult{Confidence: confidence}
	}

	// 오름차순: 손실이 앞에
	sorted := sortedCopy(returns)

	idx := int(math.Floor((1.0 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	var varValue float64
	if sorted[idx] < 0 {
		varValue = -sorted[idx]
	}

	return VaRResult{
		Confidence: confidence,
		VaR:        varValue,
		CVaR:       tailLoss(sorted, idx),
	}
}

// tailLoss VaR 인덱스까지의 평균 손실 (Expected Shortfall)
func tailLoss(sorted []float64, varIdx int) float64 {
	if len(sorted) == 0 || varIdx < 0 {
		return 0
	}

	avg := Mean(sorted[:varIdx+1])
	if avg < 0 {
		return -avg
	}
	return 0
}
