package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그와 리포트에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   Collect → Filter → Cluster → Score → Report → Backtest

// Stage represents a pipeline stage
type Stage string

const (
	// StageCollect 수집: OpenInsider 스크래핑, 시가총액 보강
	// 위치: internal/external/openinsider, internal/marketcap
	StageCollect Stage = "COLLECT"

	// StageFilter 필터: 매수만, 최소 금액, 임원 가중치, 시총 대비 비율
	// 위치: internal/filters
	StageFilter Stage = "FILTER"

	// StageCluster 클러스터: 동일 종목 다수 내부자 매수 탐지
	// 위치: internal/cluster
	StageCluster Stage = "CLUSTER"

	// StageScore 스코어: 복합 점수 및 actionable 판정
	// 위치: internal/scoring
	StageScore Stage = "SCORE"

	// StageReport 리포트: 순위 정렬된 시그널 리포트
	// 위치: internal/pipeline
	StageReport Stage = "REPORT"

	// StageBacktest 백테스트: 보유 기간별 시뮬레이션과 리스크 지표
	// 위치: internal/backtest, internal/metrics
	StageBacktest Stage = "BACKTEST"
)

// AllStages returns all stages in execution order
func AllStages() []Stage {
	return []Stage{
		StageCollect,
		StageFilter,
		StageCluster,
		StageScore,
		StageReport,
		StageBacktest,
	}
}

// String returns the string representation
func (s Stage) String() string {
	return string(s)
}
