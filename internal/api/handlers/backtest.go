package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tossww/open-insider-trader/internal/backtest"
	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/pipeline"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// BacktestRunner runs a multi-period backtest
type BacktestRunner interface {
	Run(ctx context.Context, signals []contracts.TradeSignal, periods []int) (*backtest.Report, error)
}

// BacktestRequest is the body of POST /api/backtest.
// Holding periods are trading days; -1 holds to the last available bar.
type BacktestRequest struct {
	HoldingPeriods []int    `json:"holding_periods" validate:"omitempty,max=8,dive,min=-1,max=756,ne=0"`
	MinScore       *float64 `json:"min_score" validate:"omitempty,gte=0"`
	ActionableOnly bool     `json:"actionable_only"`
	TopN           int      `json:"top_n" validate:"gte=0,lte=5000"`
	Save           bool     `json:"save"`
}

// BacktestHandler runs backtests over the current signals
type BacktestHandler struct {
	runner         BacktestRunner
	reports        ReportSource
	runs           contracts.BacktestRunRepository
	defaultPeriods []int
	validate       *validator.Validate
	logger         *logger.Logger
}

// NewBacktestHandler creates a new backtest handler. runs may be nil.
func NewBacktestHandler(runner BacktestRunner, reports ReportSource, runs contracts.BacktestRunRepository, defaultPeriods []int, log *logger.Logger) *BacktestHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &BacktestHandler{
		runner:         runner,
		reports:        reports,
		runs:           runs,
		defaultPeriods: defaultPeriods,
		validate:       validator.New(),
		logger:         log.Module("api.backtest"),
	}
}

// RunBacktest backtests the filtered signals of the latest report
// POST /api/backtest
func (h *BacktestHandler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	periods := req.HoldingPeriods
	if len(periods) == 0 {
		periods = h.defaultPeriods
	}

	report, err := h.reports.Latest(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate signals")
		respondError(w, http.StatusInternalServerError, "Failed to generate signals")
		return
	}

	opts := pipeline.FilterOptions{
		MinScore:       req.MinScore,
		ActionableOnly: req.ActionableOnly,
		TopN:           req.TopN,
	}
	signals := contracts.TradeSignals(opts.Apply(report.Signals))

	result, err := h.runner.Run(r.Context(), signals, periods)
	if err != nil {
		if errors.Is(err, backtest.ErrNoSignals) {
			respondError(w, http.StatusUnprocessableEntity, "no signals match the request")
			return
		}
		h.logger.WithError(err).Error("Backtest failed")
		respondError(w, http.StatusInternalServerError, "Backtest failed")
		return
	}
	result.ConfigHash = report.ConfigHash

	if req.Save && h.runs != nil {
		if err := h.saveRuns(r.Context(), result); err != nil {
			h.logger.WithError(err).WithField("report_id", result.ID).Warn("Failed to save backtest runs")
		}
	}

	respondData(w, result)
}

func (h *BacktestHandler) saveRuns(ctx context.Context, report *backtest.Report) error {
	runs, err := report.ToRuns()
	if err != nil {
		return err
	}
	for _, run := range runs {
		if err := h.runs.SaveRun(ctx, run); err != nil {
			return err
		}
	}
	return nil
}

// ListRuns returns recently saved backtest runs
// GET /api/backtest/runs?limit=20
func (h *BacktestHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	runs, err := h.runs.ListRuns(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list backtest runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve backtest runs")
		return
	}
	if runs == nil {
		runs = []contracts.BacktestRun{}
	}

	respondData(w, runs)
}

// GetRun returns one saved backtest run
// GET /api/backtest/runs/{id}
func (h *BacktestHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run store not configured")
		return
	}

	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", id).Error("Failed to get backtest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve backtest run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}

	respondData(w, run)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid " + fe.Namespace() + ": failed " + fe.Tag()
	}
	return err.Error()
}
