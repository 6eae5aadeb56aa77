package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/tossww/open-insider-trader/internal/cluster"
	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/filters"
	"github.com/tossww/open-insider-trader/internal/pipeline"
	"github.com/tossww/open-insider-trader/internal/scoring"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// defaultTopN caps /api/signals when top_n is absent
const defaultTopN = 50

// ReportSource returns the current signal report
type ReportSource interface {
	Latest(ctx context.Context) (*pipeline.Report, error)
}

// SignalHandler serves ranked signals
// ⭐ SSOT: 시그널 API 핸들러는 이 구조체에서만
type SignalHandler struct {
	reports ReportSource
	logger  *logger.Logger
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(reports ReportSource, log *logger.Logger) *SignalHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SignalHandler{
		reports: reports,
		logger:  log.Module("api.signals"),
	}
}

// SignalsResponse is the body of GET /api/signals
type SignalsResponse struct {
	ReportID    string             `json:"report_id"`
	GeneratedAt string             `json:"generated_at"`
	Total       int                `json:"total"`
	Count       int                `json:"count"`
	Signals     []contracts.Signal `json:"signals"`
}

// GetSignals returns ranked signals
// GET /api/signals?min_score=2&top_n=20&actionable_only=true
func (h *SignalHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	minScore, err := queryFloat(r, "min_score")
	if err != nil {
		respondError(w, http.StatusBadRequest, "min_score must be a number")
		return
	}

	report, err := h.reports.Latest(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate signals")
		respondError(w, http.StatusInternalServerError, "Failed to generate signals")
		return
	}

	opts := pipeline.FilterOptions{
		MinScore:       minScore,
		ActionableOnly: queryBool(r, "actionable_only"),
		TopN:           queryInt(r, "top_n", defaultTopN),
	}
	signals := opts.Apply(report.Signals)

	respondData(w, SignalsResponse{
		ReportID:    report.ID,
		GeneratedAt: report.GeneratedAt.Format(time.RFC3339),
		Total:       report.TotalSignals(),
		Count:       len(signals),
		Signals:     signals,
	})
}

// StatsResponse is the body of GET /api/signals/stats
type StatsResponse struct {
	ReportID   string                              `json:"report_id"`
	ConfigHash string                              `json:"config_hash"`
	Total      int                                 `json:"total"`
	Actionable int                                 `json:"actionable"`
	Categories map[contracts.ThresholdCategory]int `json:"categories"`
	Filters    filters.Stats                       `json:"filters"`
	Clusters   cluster.Summary                     `json:"clusters"`
	Scores     scoring.Summary                     `json:"scores"`
}

// GetStats returns pipeline statistics of the current report
// GET /api/signals/stats
func (h *SignalHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Latest(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate signals")
		respondError(w, http.StatusInternalServerError, "Failed to generate signals")
		return
	}

	categories := make(map[contracts.ThresholdCategory]int)
	for cat, signals := range report.ByCategory() {
		categories[cat] = len(signals)
	}

	respondData(w, StatsResponse{
		ReportID:   report.ID,
		ConfigHash: report.ConfigHash,
		Total:      report.TotalSignals(),
		Actionable: report.ActionableSignals(),
		Categories: categories,
		Filters:    report.FilterStats,
		Clusters:   report.ClusterSummary,
		Scores:     report.ScoreSummary,
	})
}
