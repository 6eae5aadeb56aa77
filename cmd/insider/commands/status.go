package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/filters"
	"github.com/tossww/open-insider-trader/pkg/redis"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "시스템 상태 조회",
	Long: `데이터베이스, Redis, 수집 데이터 상태를 표시합니다.

표시 정보:
- DB 연결 및 커넥션 풀
- Redis 활성 여부
- 최근 수집 거래
- 저장된 거래의 필터 단계별 통과 수
- 캐시된 최신 시그널 리포트

Example:
  go run ./cmd/insider status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("Open Insider Trader Status")

	// Database
	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("  Database : ❌ %s\n", health.Error)
	} else {
		fmt.Printf("  Database : ✅ %s (%d/%d conns)\n",
			health.ResponseTime.Round(time.Millisecond), health.Stats.AcquiredConns, health.Stats.MaxConns)
	}

	if counts, err := a.db.TableCounts(ctx); err != nil {
		a.log.WithError(err).Warn("Failed to count rows")
	} else {
		for _, c := range counts {
			fmt.Printf("    %-28s %6d\n", c.Table, c.Rows)
		}
	}

	// Redis
	if a.redis.Enabled() {
		fmt.Println("  Redis    : ✅ enabled")
	} else {
		fmt.Println("  Redis    : disabled")
	}

	// Collected data
	latest, err := a.transactions.ListTransactions(ctx, contracts.TransactionQuery{
		Code:  contracts.CodePurchase,
		Limit: 1,
	})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if len(latest) == 0 {
		fmt.Println("  Latest   : no purchases collected")
	} else {
		t := latest[0]
		fmt.Printf("  Latest   : %s %s filed %s\n", t.Ticker, t.InsiderName, t.FilingDate.Format("2006-01-02"))
	}

	// Filter funnel over stored transactions
	_, stats, err := filters.New(a.signalCfg, nil, a.transactions, a.log).FilterTransactions(ctx)
	if err != nil {
		return fmt.Errorf("filter transactions: %w", err)
	}
	fmt.Println("  Filters  :")
	for _, stage := range stats.Stages() {
		fmt.Printf("    %-28s %6d\n", stage.Name, stage.Count)
	}
	fmt.Printf("    %-28s %6d\n", "missing_total_value", stats.MissingTotalValue)
	fmt.Printf("    %-28s %6d\n", "missing_market_cap", stats.MissingMarketCap)

	// Cached report
	var report struct {
		ID          string    `json:"id"`
		GeneratedAt time.Time `json:"generated_at"`
	}
	found, err := a.cache.Get(ctx, redis.LatestReportKey(), &report)
	switch {
	case err != nil:
		a.log.WithError(err).Warn("Failed to read cached report")
	case found:
		fmt.Printf("  Report   : %s generated %s\n", report.ID, report.GeneratedAt.Local().Format("2006-01-02 15:04:05"))
	default:
		fmt.Println("  Report   : none cached")
	}

	PrintSeparator()
	return nil
}
