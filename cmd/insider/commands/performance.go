package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tossww/open-insider-trader/internal/contracts"
	"github.com/tossww/open-insider-trader/internal/performance"
)

// performanceCmd represents the performance command
var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "내부자 트랙레코드",
	Long: `내부자별 과거 매수 성과(승률, 평균 수익률, 알파)를 계산합니다.

Example:
  go run ./cmd/insider performance update
  go run ./cmd/insider performance update --insider-id 42 --force
  go run ./cmd/insider performance update --min-trades 5`,
}

var (
	performanceUpdateCmd = &cobra.Command{
		Use:   "update",
		Short: "트랙레코드 갱신",
		Long: `내부자 트랙레코드를 다시 계산합니다.

--insider-id 지정 시 해당 내부자만, 아니면 최소 매수 횟수 이상인 전체 내부자.
최근 계산된 기록은 --force 없이는 건너뜁니다.`,
		RunE: runPerformanceUpdate,
	}

	// Flags
	perfInsiderID int64
	perfMinTrades int
	perfForce     bool
)

func init() {
	rootCmd.AddCommand(performanceCmd)
	performanceCmd.AddCommand(performanceUpdateCmd)

	performanceUpdateCmd.Flags().Int64Var(&perfInsiderID, "insider-id", 0, "update a single insider")
	performanceUpdateCmd.Flags().IntVar(&perfMinTrades, "min-trades", 0, "minimum purchases for bulk update (default from signal config)")
	performanceUpdateCmd.Flags().BoolVar(&perfForce, "force", false, "recalculate even when recently updated")
}

func runPerformanceUpdate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Hour)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()

	if perfInsiderID > 0 {
		updated, err := a.tracker.Update(ctx, perfInsiderID, perfForce)
		if err != nil {
			if errors.Is(err, performance.ErrNoPurchases) || errors.Is(err, performance.ErrNoResults) {
				PrintWarning(fmt.Sprintf("Insider %d: %v", perfInsiderID, err))
				return nil
			}
			return fmt.Errorf("update insider %d: %w", perfInsiderID, err)
		}
		if !updated {
			PrintWarning(fmt.Sprintf("Insider %d was updated recently (use --force)", perfInsiderID))
			return nil
		}

		perf, err := a.perfStore.GetPerformance(ctx, perfInsiderID)
		if err != nil {
			return fmt.Errorf("load performance: %w", err)
		}
		printPerformance(perf)
		PrintSuccess(fmt.Sprintf("Insider %d updated in %.2fs", perfInsiderID, time.Since(start).Seconds()))
		return nil
	}

	minTrades := a.minTrades()
	if perfMinTrades > 0 {
		minTrades = perfMinTrades
	}

	PrintHeader("Insider Performance Update",
		fmt.Sprintf("Min trades : %d", minTrades),
		fmt.Sprintf("Force      : %t", perfForce),
	)

	updated, err := a.tracker.UpdateAll(ctx, minTrades, perfForce)
	if err != nil {
		return fmt.Errorf("update performance: %w", err)
	}

	PrintSuccess(fmt.Sprintf("%d insiders current in %.2fs", updated, time.Since(start).Seconds()))
	return nil
}

func printPerformance(p *contracts.InsiderPerformance) {
	if p == nil {
		return
	}
	pct := func(v *float64) string {
		if v == nil {
			return "N/A"
		}
		return fmt.Sprintf("%.2f%%", *v*100)
	}

	PrintHeader(fmt.Sprintf("Insider #%d %s", p.InsiderID, p.InsiderName))
	PrintFields(map[string]string{
		"total_buys":  fmt.Sprintf("%d", p.TotalBuys),
		"total_sells": fmt.Sprintf("%d", p.TotalSells),
		"win_rate_1w": pct(p.WinRate1W),
		"win_rate_1m": pct(p.WinRate1M),
		"win_rate_3m": pct(p.WinRate3M),
		"win_rate_6m": pct(p.WinRate6M),
		"avg_return":  pct(p.AvgReturn),
		"alpha":       pct(p.AlphaVsSPY),
	}, []string{"total_buys", "total_sells", "win_rate_1w", "win_rate_1m", "win_rate_3m", "win_rate_6m", "avg_return", "alpha"})
}
