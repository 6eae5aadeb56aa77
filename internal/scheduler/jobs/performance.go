package jobs

import (
	"context"
	"fmt"

	"github.com/tossww/open-insider-trader/pkg/logger"
)

// PerformanceUpdater refreshes insider track records
type PerformanceUpdater interface {
	UpdateAll(ctx context.Context, minTrades int, force bool) (int, error)
}

// InsiderPerformanceJob refreshes stale insider performance weekly
type InsiderPerformanceJob struct {
	updater   PerformanceUpdater
	minTrades int
	logger    *logger.Logger
}

// NewInsiderPerformanceJob creates a new insider performance job
func NewInsiderPerformanceJob(updater PerformanceUpdater, minTrades int, log *logger.Logger) *InsiderPerformanceJob {
	if log == nil {
		log = logger.Nop()
	}
	return &InsiderPerformanceJob{
		updater:   updater,
		minTrades: minTrades,
		logger:    log.Module("job.performance"),
	}
}

// Name returns the job name
func (j *InsiderPerformanceJob) Name() string {
	return "insider_performance"
}

// Schedule returns the cron schedule (Sunday 3 AM)
func (j *InsiderPerformanceJob) Schedule() string {
	return "0 0 3 * * 0"
}

// Description returns a human readable description
func (j *InsiderPerformanceJob) Description() string {
	return "Backtest each insider's purchases and store win rates"
}

// Run executes the update; rows younger than a week are kept
func (j *InsiderPerformanceJob) Run(ctx context.Context) error {
	updated, err := j.updater.UpdateAll(ctx, j.minTrades, false)
	if err != nil {
		return fmt.Errorf("update insider performance: %w", err)
	}

	j.logger.WithField("insiders", updated).Info("Insider performance job completed")
	return nil
}
