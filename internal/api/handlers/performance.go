package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/performance"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// PerformanceRefresher recalculates one insider's track record
type PerformanceRefresher interface {
	Update(ctx context.Context, insiderID int64, force bool) (bool, error)
}

// PerformanceHandler serves insider track records
type PerformanceHandler struct {
	store   contracts.PerformanceRepository
	tracker PerformanceRefresher
	logger  *logger.Logger
}

// NewPerformanceHandler creates a new performance handler. tracker may be nil.
func NewPerformanceHandler(store contracts.PerformanceRepository, tracker PerformanceRefresher, log *logger.Logger) *PerformanceHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PerformanceHandler{
		store:   store,
		tracker: tracker,
		logger:  log.Module("api.performance"),
	}
}

// GetPerformance returns the stored performance of an insider.
// refresh=true recalculates first.
// GET /api/insiders/{id}/performance?refresh=true
func (h *PerformanceHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid insider id")
		return
	}

	log := h.logger.WithField("insider_id", id)

	if queryBool(r, "refresh") && h.tracker != nil {
		if _, err := h.tracker.Update(r.Context(), id, true); err != nil {
			switch {
			case errors.Is(err, performance.ErrInsiderNotFound):
				respondError(w, http.StatusNotFound, "insider not found")
				return
			case errors.Is(err, performance.ErrNoPurchases), errors.Is(err, performance.ErrNoResults):
				// 계산할 데이터 없음, 저장된 값 그대로 조회
				log.WithError(err).Debug("Nothing to recalculate")
			default:
				log.WithError(err).Error("Failed to refresh performance")
				respondError(w, http.StatusInternalServerError, "Failed to refresh performance")
				return
			}
		}
	}

	perf, err := h.store.GetPerformance(r.Context(), id)
	if err != nil {
		log.WithError(err).Error("Failed to get performance")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve performance")
		return
	}
	if perf == nil {
		respondError(w, http.StatusNotFound, "no performance recorded for insider")
		return
	}

	respondData(w, perf)
}
