package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tossww/open-insider-trader/internal/scheduler/jobs"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "내부자 거래 수집",
	Long: `외부 소스에서 내부자 매수 거래를 수집하여 저장합니다.

Subcommands:
  openinsider  - OpenInsider 스크리너 수집

Example:
  go run ./cmd/insider collect openinsider
  go run ./cmd/insider collect openinsider --days 7 --min-value 100000`,
}

var (
	collectOpenInsiderCmd = &cobra.Command{
		Use:   "openinsider",
		Short: "OpenInsider 매수 거래 수집",
		Long: `OpenInsider 스크리너 페이지를 순회하며 매수(P) 거래를 수집합니다.

수집 단계:
1. 스크리너 페이지 크롤링 (페이지당 100건, 100건 미만이면 종료)
2. 최소 금액 필터 및 티커 검증
3. 공시일 기준 시가총액 보강
4. DB 저장 (중복 무시)`,
		RunE: runCollectOpenInsider,
	}

	// Flags
	collectDays     int
	collectMinValue float64
	collectMaxPages int
)

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.AddCommand(collectOpenInsiderCmd)

	collectOpenInsiderCmd.Flags().IntVar(&collectDays, "days", 0, "look back this many days (default OPENINSIDER_DAYS_BACK)")
	collectOpenInsiderCmd.Flags().Float64Var(&collectMinValue, "min-value", 0, "minimum trade value in USD (default OPENINSIDER_MIN_VALUE)")
	collectOpenInsiderCmd.Flags().IntVar(&collectMaxPages, "max-pages", 0, "maximum screener pages (default OPENINSIDER_MAX_PAGES)")
}

func runCollectOpenInsider(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := a.openInsider.DefaultOptions()
	if collectDays > 0 {
		opts.DaysBack = collectDays
	}
	if cmd.Flags().Changed("min-value") {
		opts.MinValueUSD = collectMinValue
	}
	if collectMaxPages > 0 {
		opts.MaxPages = collectMaxPages
	}

	PrintHeader("OpenInsider Collection",
		fmt.Sprintf("Days back : %d", opts.DaysBack),
		fmt.Sprintf("Min value : %s", formatUSD(opts.MinValueUSD)),
		fmt.Sprintf("Max pages : %d", opts.MaxPages),
	)

	start := time.Now()
	job := jobs.NewOpenInsiderCollectionJob(a.openInsider, a.marketCaps, a.transactions, a.log)
	stats, err := job.Collect(ctx, opts)
	if err != nil {
		return err
	}

	PrintFields(map[string]string{
		"fetched":     fmt.Sprintf("%d", stats.Fetched),
		"market_caps": fmt.Sprintf("%d", stats.MarketCaps),
		"saved":       fmt.Sprintf("%d", stats.Saved),
	}, []string{"fetched", "market_caps", "saved"})

	PrintSuccess(fmt.Sprintf("Collection completed in %.2fs", time.Since(start).Seconds()))
	return nil
}
