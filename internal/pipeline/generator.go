package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tossww/open-insider-trader/internal/cluster"
	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/executive"
	"github.com/tossww/open-insider-trader/internal/filters"
	"github.com/tossww/open-insider-trader/internal/scoring"
	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/logger"
)

// Publisher receives every generated report (websocket hub, cache)
type Publisher interface {
	Publish(ctx context.Context, report *Report) error
}

// Generator runs filter → cluster → score → alert and wraps the result in a Report
// ⭐ SSOT: 시그널 파이프라인 오케스트레이션은 여기서만
type Generator struct {
	loader       contracts.TransactionLoader
	filter       *filters.Filter
	detector     *cluster.Detector
	scorer       *scoring.Scorer
	alerts       *scoring.AlertScorer
	trackRecords contracts.TrackRecordRepository
	configHash   string
	publishers   []Publisher
	logger       *logger.Logger
}

// Option configures a Generator
type Option func(*Generator)

// WithTrackRecords enables track record points from stored insider performance
func WithTrackRecords(repo contracts.TrackRecordRepository) Option {
	return func(g *Generator) {
		g.trackRecords = repo
	}
}

// NewGenerator wires the stage components from one configuration
func NewGenerator(cfg *signalconfig.Config, loader contracts.TransactionLoader, log *logger.Logger, opts ...Option) (*Generator, error) {
	if log == nil {
		log = logger.Nop()
	}

	hash, err := signalconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash signal config: %w", err)
	}

	classifier := executive.NewClassifier(cfg, log)
	g := &Generator{
		loader:     loader,
		filter:     filters.New(cfg, classifier, loader, log),
		detector:   cluster.NewDetector(cfg, log),
		scorer:     scoring.NewScorer(cfg, log),
		configHash: hash,
		logger:     log.Module("pipeline"),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.alerts = scoring.NewAlertScorer(cfg, g.trackRecords, log)
	return g, nil
}

// AddPublisher registers a report consumer
func (g *Generator) AddPublisher(p Publisher) {
	g.publishers = append(g.publishers, p)
}

// Generate loads transactions and produces a ranked report
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	start := time.Now()

	if g.loader == nil {
		return nil, fmt.Errorf("%s stage: no transaction loader configured", contracts.StageFilter)
	}
	// 반복 매수 판정에 필터 전 전체 거래가 필요하므로 직접 로드
	txns, err := g.loader.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s stage: load transactions: %w", contracts.StageFilter, err)
	}

	report := g.GenerateFrom(ctx, txns)

	g.logger.WithFields(map[string]interface{}{
		"stage":      contracts.StageReport,
		"report_id":  report.ID,
		"total":      report.TotalSignals(),
		"actionable": report.ActionableSignals(),
		"duration":   time.Since(start),
	}).Info("Generated signal report")

	g.publish(ctx, report)
	return report, nil
}

// GenerateFrom runs the stages over already loaded transactions without publishing
func (g *Generator) GenerateFrom(ctx context.Context, txns []contracts.Transaction) *Report {
	filtered, stats := g.filter.Apply(txns)
	return g.build(ctx, filtered, stats, scoring.NewPurchaseHistory(txns))
}

// GenerateAndFilter generates a report and returns a copy whose signals are
// narrowed with opts. The published report keeps the full signal list.
func (g *Generator) GenerateAndFilter(ctx context.Context, opts FilterOptions) (*Report, error) {
	report, err := g.Generate(ctx)
	if err != nil {
		return nil, err
	}

	// 퍼블리셔가 같은 포인터를 보관하므로 원본은 수정하지 않음
	filtered := *report
	filtered.Signals = opts.Apply(report.Signals)
	return &filtered, nil
}

func (g *Generator) build(ctx context.Context, filtered []contracts.Signal, stats filters.Stats, history *scoring.PurchaseHistory) *Report {
	clustered := g.detector.Detect(filtered)
	scored := g.alerts.ScoreAll(ctx, g.scorer.ScoreAll(clustered), history)

	return &Report{
		ID:             uuid.NewString(),
		GeneratedAt:    time.Now().UTC(),
		ConfigHash:     g.configHash,
		Signals:        scored,
		FilterStats:    stats,
		ClusterSummary: cluster.Summarize(clustered),
		ScoreSummary:   scoring.Summarize(scored),
	}
}

// publish 실패는 리포트 생성을 막지 않음
func (g *Generator) publish(ctx context.Context, report *Report) {
	for _, p := range g.publishers {
		if err := p.Publish(ctx, report); err != nil {
			g.logger.WithError(err).WithField("report_id", report.ID).Warn("Failed to publish report")
		}
	}
}
