package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/tossww/open-insider-trader/internal/backtest"
	"github.com/tossww/open-insider-trader/internal/data/repos"
	"github.com/tossww/open-insider-trader/internal/external/openinsider"
	"github.com/tossww/open-insider-trader/internal/external/yahoo"
	"github.com/tossww/open-insider-trader/internal/marketcap"
	"github.com/tossww/open-insider-trader/internal/performance"
	"github.com/tossww/open-insider-trader/internal/pipeline"
	"github.com/tossww/open-insider-trader/internal/prices"
	"github.com/tossww/open-insider-trader/internal/signalconfig"
	"github.com/tossww/open-insider-trader/pkg/config"
	"github.com/tossww/open-insider-trader/pkg/database"
	"github.com/tossww/open-insider-trader/pkg/httputil"
	"github.com/tossww/open-insider-trader/pkg/logger"
	"github.com/tossww/open-insider-trader/pkg/redis"
)

// cachePrefix namespaces every Redis key written by this process
const cachePrefix = "insider"

// settings is the configuration every command needs
type settings struct {
	cfg       *config.Config
	signalCfg *signalconfig.Config
	log       *logger.Logger
}

// loadSettings reads the environment and the signal YAML
func loadSettings() (*settings, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if signalConfigPath != "" {
		cfg.SignalConfigPath = signalConfigPath
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load signal config (검증 실패 시 즉시 중단)
	signalCfg, _, err := signalconfig.Load(cfg.SignalConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load signal config: %w", err)
	}
	for _, w := range signalconfig.Warn(signalCfg) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	return &settings{cfg: cfg, signalCfg: signalCfg, log: log}, nil
}

// app holds the wired components shared by the commands
// ⭐ SSOT: 컴포넌트 조립은 여기서만
type app struct {
	*settings

	db    *database.DB
	redis *redis.Client
	cache *redis.Cache

	transactions *repos.TransactionRepository
	perfStore    *repos.PerformanceRepository
	runs         *repos.BacktestRunRepository

	prices      *prices.Fetcher
	marketCaps  *marketcap.Fetcher
	openInsider *openinsider.Client
	generator   *pipeline.Generator
	latest      *pipeline.LatestReports
	engine      *backtest.Engine
	tracker     *performance.Tracker
}

// newApp connects to Postgres and Redis and wires every component
func newApp(ctx context.Context) (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	cfg, log := s.cfg, s.log

	// 4. Connect to database
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	// 5. Connect to Redis (비활성 시 no-op 캐시)
	redisClient, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		redisClient = redis.Disabled()
	}
	cache := redis.NewCache(redisClient, cachePrefix)

	// 6. Create repositories
	txnRepo := repos.NewTransactionRepository(db.Pool)
	insiderRepo := repos.NewInsiderRepository(db.Pool)
	perfRepo := repos.NewPerformanceRepository(db.Pool)
	runRepo := repos.NewBacktestRunRepository(db.Pool)

	// 7. Create external clients (헤더와 한도가 다르므로 HTTP 클라이언트 분리)
	// Redis 슬라이딩 윈도우: API와 스케줄러 프로세스가 한도를 공유
	limiter := redis.NewRateLimiter(redisClient, cachePrefix)
	yahooHTTP := httputil.New(log).WithRateLimiter(limiter, redis.YahooRateLimit)
	oiHTTP := httputil.New(log).WithRateLimiter(limiter, redis.OpenInsiderRateLimit)

	yahooClient := yahoo.NewClient(yahooHTTP, cfg.Yahoo, log)
	oiClient := openinsider.NewClient(oiHTTP, cfg.OpenInsider, cache, yahooClient, log)

	priceFetcher := prices.NewFetcher(yahooClient, log,
		prices.WithStore(repos.NewPriceRepository(db.Pool)),
		prices.WithSeriesCache(cache),
		prices.WithBatchInterval(cfg.PriceBatchInterval),
	)
	mcFetcher := marketcap.NewFetcher(repos.NewMarketCapRepository(db.Pool), yahooClient, yahooClient, cache, log)

	// 8. Create pipeline
	generator, err := pipeline.NewGenerator(s.signalCfg, txnRepo, log, pipeline.WithTrackRecords(perfRepo))
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, fmt.Errorf("create generator: %w", err)
	}
	latest := pipeline.NewLatestReports(generator, cache, log)
	generator.AddPublisher(latest)

	// 9. Create backtest engine and performance tracker
	engine := backtest.NewEngine(backtest.ConfigFrom(s.signalCfg.Backtest), priceFetcher, log)

	trackerOpts := []performance.Option{performance.WithPeriods(s.signalCfg.Performance.HoldingPeriods)}
	if days := s.signalCfg.Performance.RefreshDays; days > 0 {
		trackerOpts = append(trackerOpts, performance.WithRefreshAfter(time.Duration(days)*24*time.Hour))
	}
	tracker := performance.NewTracker(insiderRepo, txnRepo, perfRepo, engine, log, trackerOpts...)

	return &app{
		settings:     s,
		db:           db,
		redis:        redisClient,
		cache:        cache,
		transactions: txnRepo,
		perfStore:    perfRepo,
		runs:         runRepo,
		prices:       priceFetcher,
		marketCaps:   mcFetcher,
		openInsider:  oiClient,
		generator:    generator,
		latest:       latest,
		engine:       engine,
		tracker:      tracker,
	}, nil
}

// Close releases the database and Redis connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close Redis")
	}
	a.db.Close()
}

// minTrades returns the configured minimum purchases for bulk performance updates
func (a *app) minTrades() int {
	if n := a.signalCfg.Performance.MinTrades; n > 0 {
		return n
	}
	return performance.DefaultMinTrades
}
