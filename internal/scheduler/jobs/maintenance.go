package jobs

import (
	"context"

	"github.com/tossww/open-insider-trader/pkg/logger"
)

// CacheClearer drops an in-process cache
type CacheClearer interface {
	ClearCache()
}

// PatternDeleter removes Redis keys matching a pattern
type PatternDeleter interface {
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

// openSeriesPattern matches price series cached with an open end date
const openSeriesPattern = "prices:*:now"

// CacheMaintenanceJob evicts caches that go stale as the day advances
type CacheMaintenanceJob struct {
	clearers []CacheClearer
	redis    PatternDeleter
	logger   *logger.Logger
}

// NewCacheMaintenanceJob creates a new cache maintenance job. redis may be nil.
func NewCacheMaintenanceJob(redis PatternDeleter, log *logger.Logger, clearers ...CacheClearer) *CacheMaintenanceJob {
	if log == nil {
		log = logger.Nop()
	}
	return &CacheMaintenanceJob{
		clearers: clearers,
		redis:    redis,
		logger:   log.Module("job.maintenance"),
	}
}

// Name returns the job name
func (j *CacheMaintenanceJob) Name() string {
	return "cache_maintenance"
}

// Schedule returns the cron schedule (hourly)
func (j *CacheMaintenanceJob) Schedule() string {
	return "0 5 * * * *"
}

// Description returns a human readable description
func (j *CacheMaintenanceJob) Description() string {
	return "Clear process caches and open-ended price series"
}

// Run executes the cache cleanup. Redis failures are logged, not returned.
func (j *CacheMaintenanceJob) Run(ctx context.Context) error {
	for _, c := range j.clearers {
		c.ClearCache()
	}

	removed := 0
	if j.redis != nil {
		n, err := j.redis.DeletePattern(ctx, openSeriesPattern)
		if err != nil {
			j.logger.WithError(err).Warn("Failed to evict open price series")
		}
		removed = n
	}

	j.logger.WithFields(map[string]interface{}{
		"process_caches": len(j.clearers),
		"redis_removed":  removed,
	}).Debug("Cache maintenance completed")

	return nil
}
