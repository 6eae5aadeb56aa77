package cluster

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// plusBucket is the cluster-weight key used for 5 or more insiders
const plusBucket = 5

// Summary describes the clusters found in a signal list
type Summary struct {
	TotalClusters         int     `json:"total_clusters"`
	TotalTransactions     int     `json:"total_transactions"`
	AvgClusterSize        float64 `json:"avg_cluster_size"`
	MaxClusterSize        int     `json:"max_cluster_size"`
	SoloTransactions      int     `json:"solo_transactions"`
	ClusteredTransactions int     `json:"clustered_transactions"`
}

// Detector groups purchases of the same company filed within a window
// ⭐ SSOT: 클러스터 탐지는 여기서만
type Detector struct {
	windowDays int
	weights    map[int]float64
	logger     *logger.Logger
}

// NewDetector creates a cluster detector
func NewDetector(cfg *signalconfig.Config, log *logger.Logger) *Detector {
	if log == nil {
		log = logger.Nop()
	}
	return &Detector{
		windowDays: cfg.Filtering.ClusterWindowDays,
		weights:    cfg.ClusterWeights,
		logger:     log.Module("cluster"),
	}
}

// Detect assigns cluster id, size and weight to every signal.
//
// Signals are stably sorted by (ticker, filing date). A cluster starts at a
// ticker change or when a filing is later than the first filing of the
// current cluster plus the window. Size counts unique insider names.
// The returned slice is in (ticker, filing date) order.
func (d *Detector) Detect(signals []contracts.Signal) []contracts.Signal {
	if len(signals) == 0 {
		return []contracts.Signal{}
	}

	sorted := make([]contracts.Signal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Ticker != sorted[j].Ticker {
			return sorted[i].Ticker < sorted[j].Ticker
		}
		return sorted[i].FilingDate.Before(sorted[j].FilingDate)
	})

	window := time.Duration(d.windowDays) * 24 * time.Hour
	out := make([]contracts.Signal, 0, len(sorted))

	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) &&
			sorted[i].Ticker == sorted[start].Ticker &&
			!sorted[i].FilingDate.After(sorted[start].FilingDate.Add(window)) {
			continue
		}
		out = append(out, d.annotate(sorted[start:i])...)
		start = i
	}

	summary := Summarize(out)
	d.logger.WithFields(map[string]interface{}{
		"clusters":  summary.TotalClusters,
		"clustered": summary.ClusteredTransactions,
		"solo":      summary.SoloTransactions,
		"max_size":  summary.MaxClusterSize,
	}).Info("Detected clusters")

	return out
}

// annotate returns copies of members with cluster fields set
func (d *Detector) annotate(members []contracts.Signal) []contracts.Signal {
	insiders := make(map[string]struct{}, len(members))
	earliest := members[0].FilingDate
	for _, m := range members {
		insiders[m.InsiderName] = struct{}{}
		if m.FilingDate.Before(earliest) {
			earliest = m.FilingDate
		}
	}

	size := len(insiders)
	id := ID(members[0].Ticker, earliest)
	weight := d.Weight(size)

	annotated := make([]contracts.Signal, len(members))
	for i, m := range members {
		m.ClusterID = id
		m.ClusterSize = size
		m.ClusterWeight = weight
		annotated[i] = m
	}
	return annotated
}

// Weight returns the configured weight for a cluster size, using the 5+ bucket
// for larger clusters and 1.0 when the size is not configured
func (d *Detector) Weight(size int) float64 {
	if size >= plusBucket {
		size = plusBucket
	}
	if w, ok := d.weights[size]; ok {
		return w
	}
	return 1.0
}

// ID formats a cluster id as TICKER_YYYYMMDD
func ID(ticker string, earliest time.Time) string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(ticker), earliest.Format("20060102"))
}

// Summarize computes cluster statistics over annotated signals.
// AvgClusterSize is the mean over transactions, not over clusters.
func Summarize(signals []contracts.Signal) Summary {
	if len(signals) == 0 {
		return Summary{}
	}

	ids := make(map[string]struct{})
	total := 0
	summary := Summary{TotalTransactions: len(signals)}
	for _, s := range signals {
		ids[s.ClusterID] = struct{}{}
		total += s.ClusterSize
		if s.ClusterSize > summary.MaxClusterSize {
			summary.MaxClusterSize = s.ClusterSize
		}
		if s.ClusterSize == 1 {
			summary.SoloTransactions++
		} else if s.ClusterSize > 1 {
			summary.ClusteredTransactions++
		}
	}
	summary.TotalClusters = len(ids)
	summary.AvgClusterSize = float64(total) / float64(len(signals))

	return summary
}
