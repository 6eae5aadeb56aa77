package pipeline

import (
	"time"

	"github.com/tossww/open-insider-trader/internal/cluster"
	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/filters"
	"github.com/tossww/open-insider-trader/internal/scoring"
)

// Report is the ranked output of one pipeline run
// ⭐ SSOT: 파이프라인 → CLI/API/알림 전달 형식
type Report struct {
	ID             string             `json:"id"`
	GeneratedAt    time.Time          `json:"generated_at"`
	ConfigHash     string             `json:"config_hash"`
	Signals        []contracts.Signal `json:"signals"` // composite score 내림차순
	FilterStats    filters.Stats      `json:"filter_stats"`
	ClusterSummary cluster.Summary    `json:"cluster_summary"`
	ScoreSummary   scoring.Summary    `json:"score_summary"`
}

// TotalSignals returns the number of ranked signals
func (r *Report) TotalSignals() int {
	return len(r.Signals)
}

// ActionableSignals returns the number of actionable signals
func (r *Report) ActionableSignals() int {
	n := 0
	for _, s := range r.Signals {
		if s.IsActionable {
			n++
		}
	}
	return n
}

// TopSignals returns at most n highest-ranked signals
func (r *Report) TopSignals(n int) []contracts.Signal {
	if n < 0 {
		n = 0
	}
	if n > len(r.Signals) {
		n = len(r.Signals)
	}
	out := make([]contracts.Signal, n)
	copy(out, r.Signals[:n])
	return out
}

// ActionableOnly returns the actionable signals in rank order
func (r *Report) ActionableOnly() []contracts.Signal {
	out := make([]contracts.Signal, 0, len(r.Signals))
	for _, s := range r.Signals {
		if s.IsActionable {
			out = append(out, s)
		}
	}
	return out
}

// ByCategory groups signals by threshold category, keeping rank order
func (r *Report) ByCategory() map[contracts.ThresholdCategory][]contracts.Signal {
	out := make(map[contracts.ThresholdCategory][]contracts.Signal)
	for _, s := range r.Signals {
		out[s.Category] = append(out[s.Category], s)
	}
	return out
}

// StrongBuys returns strong_buy signals in rank order (alert candidates)
func (r *Report) StrongBuys() []contracts.Signal {
	return r.ByCategory()[contracts.CategoryStrongBuy]
}

// FilterOptions are post-hoc filters applied to a ranked list
type FilterOptions struct {
	MinScore       *float64
	ActionableOnly bool
	TopN           int // 0 = 제한 없음
}

// Apply filters by min score, then actionable flag, then truncates to TopN
func (o FilterOptions) Apply(signals []contracts.Signal) []contracts.Signal {
	out := make([]contracts.Signal, 0, len(signals))
	for _, s := range signals {
		if o.MinScore != nil && s.CompositeScore < *o.MinScore {
			continue
		}
		if o.ActionableOnly && !s.IsActionable {
			continue
		}
		out = append(out, s)
	}

	if o.TopN > 0 && len(out) > o.TopN {
		out = out[:o.TopN]
	}
	return out
}
