package jobs

import (
	"context"
	"fmt"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/external/openinsider"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// PurchaseSource crawls recent insider purchases
type PurchaseSource interface {
	FetchLatestPurchases(ctx context.Context, opts openinsider.FetchOptions) ([]contracts.Transaction, error)
	DefaultOptions() openinsider.FetchOptions
}

// MarketCapBackfiller attaches filing-date market caps to transactions
type MarketCapBackfiller interface {
	Backfill(ctx context.Context, txns []contracts.Transaction) int
}

// TransactionSaver persists transactions, ignoring duplicates
type TransactionSaver interface {
	SaveTransactions(ctx context.Context, txns []contracts.Transaction) (int, error)
}

// CollectionStats summarizes one collection run
type CollectionStats struct {
	Fetched    int `json:"fetched"`
	MarketCaps int `json:"market_caps"`
	Saved      int `json:"saved"`
}

// OpenInsiderCollectionJob scrapes new purchases and stores them daily
// ⭐ SSOT: 내부자 거래 수집 스케줄은 이 Job에서만
type OpenInsiderCollectionJob struct {
	source     PurchaseSource
	marketCaps MarketCapBackfiller
	repo       TransactionSaver
	logger     *logger.Logger
}

// NewOpenInsiderCollectionJob creates a new collection job. marketCaps may be nil.
func NewOpenInsiderCollectionJob(source PurchaseSource, marketCaps MarketCapBackfiller, repo TransactionSaver, log *logger.Logger) *OpenInsiderCollectionJob {
	if log == nil {
		log = logger.Nop()
	}
	return &OpenInsiderCollectionJob{
		source:     source,
		marketCaps: marketCaps,
		repo:       repo,
		logger:     log.Module("job.collection"),
	}
}

// Name returns the job name
func (j *OpenInsiderCollectionJob) Name() string {
	return "openinsider_collection"
}

// Schedule returns the cron schedule (every day at 6 PM, after most filings)
func (j *OpenInsiderCollectionJob) Schedule() string {
	return "0 0 18 * * *"
}

// Description returns a human readable description
func (j *OpenInsiderCollectionJob) Description() string {
	return "Scrape OpenInsider purchases, backfill market caps, store"
}

// Run executes the collection with the configured crawl bounds
func (j *OpenInsiderCollectionJob) Run(ctx context.Context) error {
	_, err := j.Collect(ctx, j.source.DefaultOptions())
	return err
}

// Collect fetches purchases within opts and stores them
func (j *OpenInsiderCollectionJob) Collect(ctx context.Context, opts openinsider.FetchOptions) (CollectionStats, error) {
	var stats CollectionStats

	txns, err := j.source.FetchLatestPurchases(ctx, opts)
	if err != nil {
		return stats, fmt.Errorf("fetch purchases: %w", err)
	}
	stats.Fetched = len(txns)
	if len(txns) == 0 {
		j.logger.Warn("No purchases fetched")
		return stats, nil
	}

	if j.marketCaps != nil {
		stats.MarketCaps = j.marketCaps.Backfill(ctx, txns)
	}

	saved, err := j.repo.SaveTransactions(ctx, txns)
	if err != nil {
		return stats, fmt.Errorf("save transactions: %w", err)
	}
	stats.Saved = saved

	j.logger.WithFields(map[string]interface{}{
		"stage":       contracts.StageCollect,
		"fetched":     stats.Fetched,
		"market_caps": stats.MarketCaps,
		"saved":       stats.Saved,
	}).Info("OpenInsider collection completed")

	return stats, nil
}
