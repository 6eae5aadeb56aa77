package jobs

import (
	"context"
	"fmt"

	"github.com/tossww/open-insider-trader/internal/pipeline"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// ReportGenerator produces a ranked signal report
type ReportGenerator interface {
	Generate(ctx context.Context) (*pipeline.Report, error)
}

// SignalGenerationJob regenerates the signal report after the close.
// Publishers registered on the generator receive the report.
type SignalGenerationJob struct {
	generator ReportGenerator
	logger    *logger.Logger
}

// NewSignalGenerationJob creates a new signal generation job
func NewSignalGenerationJob(generator ReportGenerator, log *logger.Logger) *SignalGenerationJob {
	if log == nil {
		log = logger.Nop()
	}
	return &SignalGenerationJob{
		generator: generator,
		logger:    log.Module("job.signals"),
	}
}

// Name returns the job name
func (j *SignalGenerationJob) Name() string {
	return "signal_generation"
}

// Schedule returns the cron schedule (weekdays at 7 PM, after collection)
func (j *SignalGenerationJob) Schedule() string {
	return "0 0 19 * * 1-5"
}

// Description returns a human readable description
func (j *SignalGenerationJob) Description() string {
	return "Run filter, cluster and score over stored transactions"
}

// Run executes the signal generation
func (j *SignalGenerationJob) Run(ctx context.Context) error {
	report, err := j.generator.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate signals: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"report_id":  report.ID,
		"signals":    report.TotalSignals(),
		"actionable": report.ActionableSignals(),
	}).Info("Signal generation completed")

	return nil
}
