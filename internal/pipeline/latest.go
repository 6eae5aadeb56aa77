package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/tossww/open-insider-trader/pkg/logger"
	"github.com/tossww/open-insider-trader/pkg/redis"
)

// ReportGenerator produces a fresh report
type ReportGenerator interface {
	Generate(ctx context.Context) (*Report, error)
}

// LatestReports serves the most recent report to readers (API, websocket)
// and regenerates it once it is older than maxAge. It is registered as a
// Publisher so scheduled runs refresh it too.
type LatestReports struct {
	generator ReportGenerator
	cache     *redis.Cache
	maxAge    time.Duration
	now       func() time.Time

	mu   sync.Mutex
	last *Report

	logger *logger.Logger
}

// NewLatestReports creates the latest-report holder. cache may be nil.
func NewLatestReports(generator ReportGenerator, cache *redis.Cache, log *logger.Logger) *LatestReports {
	if log == nil {
		log = logger.Nop()
	}
	return &LatestReports{
		generator: generator,
		cache:     cache,
		maxAge:    redis.TTLShort,
		now:       time.Now,
		logger:    log.Module("pipeline.latest"),
	}
}

// Publish stores the report as the latest one
func (l *LatestReports) Publish(ctx context.Context, report *Report) error {
	l.mu.Lock()
	l.last = report
	l.mu.Unlock()

	if l.cache == nil {
		return nil
	}
	return l.cache.Set(ctx, redis.LatestReportKey(), report, l.maxAge)
}

// Peek returns the last report held in memory without regenerating
func (l *LatestReports) Peek() *Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Latest returns a report no older than maxAge, generating one when needed
func (l *LatestReports) Latest(ctx context.Context) (*Report, error) {
	if r := l.Peek(); r != nil && l.fresh(r) {
		return r, nil
	}

	if l.cache != nil {
		var cached Report
		if found, err := l.cache.Get(ctx, redis.LatestReportKey(), &cached); err == nil && found {
			l.mu.Lock()
			l.last = &cached
			l.mu.Unlock()
			return &cached, nil
		}
	}

	report, err := l.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	// Generate 가 Publisher 로 등록되지 않은 경우 대비
	if l.Peek() != report {
		if err := l.Publish(ctx, report); err != nil {
			l.logger.WithError(err).Warn("Failed to cache latest report")
		}
	}
	return report, nil
}

func (l *LatestReports) fresh(r *Report) bool {
	return l.now().Sub(r.GeneratedAt) < l.maxAge
}
