package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tossww/open-insider-trader/internal/backtest"
	"github.com/tossww/open-insider-trader/internal/contracts"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "시그널 백테스트",
	Long: `현재 시그널을 과거 가격으로 백테스트합니다.

백테스팅은 다음을 검증합니다:
- 보유 기간별 순수익률 (수수료, 슬리피지 차감)
- 리스크 지표 (Sharpe, MDD, Calmar, VaR)
- 승률 및 벤치마크(SPY) 대비 알파

Example:
  go run ./cmd/insider backtest run
  go run ./cmd/insider backtest run --periods 5,21,63,-1
  go run ./cmd/insider backtest run --actionable-only --save`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `시그널 리포트를 생성한 뒤 보유 기간별로 백테스트를 실행합니다.

Flags:
  --periods          보유 기간 (거래일, 쉼표 구분, -1 = 마지막 봉까지)
  --min-score        최소 복합 점수
  --top-n            상위 N개 시그널만 사용
  --actionable-only  실행 가능 시그널만 사용
  --save             결과를 backtest_runs 테이블에 저장`,
		RunE: runBacktest,
	}

	// Flags
	backtestPeriods        string
	backtestMinScore       float64
	backtestTopN           int
	backtestActionableOnly bool
	backtestSave           bool
	backtestJSON           bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	backtestRunCmd.Flags().StringVar(&backtestPeriods, "periods", "", "holding periods in trading days (default from signal config)")
	backtestRunCmd.Flags().Float64Var(&backtestMinScore, "min-score", 0, "minimum composite score")
	backtestRunCmd.Flags().IntVar(&backtestTopN, "top-n", 0, "use only the top N signals (0 = all)")
	backtestRunCmd.Flags().BoolVar(&backtestActionableOnly, "actionable-only", false, "use actionable signals only")
	backtestRunCmd.Flags().BoolVar(&backtestSave, "save", false, "persist results to backtest_runs")
	backtestRunCmd.Flags().BoolVar(&backtestJSON, "json", false, "print the report as JSON")
}

// resultKeys orders Result.Summary() for display
var resultKeys = []string{
	"holding_period", "total_trades", "win_rate", "avg_net_return", "median_net_return",
	"total_net_return", "max_win", "max_loss", "avg_spy_return", "alpha",
}

// metricKeys orders RiskMetrics.Display() for display
var metricKeys = []string{
	"sharpe_ratio", "max_drawdown", "calmar_ratio", "profit_factor",
	"std_return", "skewness", "kurtosis", "var_95",
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	periods := a.signalCfg.Backtest.HoldingPeriods
	if backtestPeriods != "" {
		if periods, err = parsePeriods(backtestPeriods); err != nil {
			return err
		}
	}

	// 1. Generate signals
	report, err := a.generator.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate signals: %w", err)
	}
	opts := signalFilterOptions(cmd, backtestMinScore, backtestTopN, backtestActionableOnly)
	signals := contracts.TradeSignals(opts.Apply(report.Signals))

	// 2. Run backtest
	start := time.Now()
	result, err := a.engine.Run(ctx, signals, periods)
	if err != nil {
		if errors.Is(err, backtest.ErrNoSignals) {
			PrintWarning("No signals to backtest")
			return nil
		}
		return fmt.Errorf("run backtest: %w", err)
	}
	result.ConfigHash = report.ConfigHash

	// 3. Persist
	if backtestSave {
		runs, err := result.ToRuns()
		if err != nil {
			return fmt.Errorf("convert backtest runs: %w", err)
		}
		for _, run := range runs {
			if err := a.runs.SaveRun(ctx, run); err != nil {
				return fmt.Errorf("save backtest run: %w", err)
			}
		}
		a.log.WithField("runs", len(runs)).Info("Backtest runs saved")
	}

	if backtestJSON {
		return PrintJSON(result)
	}

	cfg := a.engine.Config()
	PrintHeader("Insider Signal Backtest",
		fmt.Sprintf("Report ID : %s", result.ID),
		fmt.Sprintf("Signals   : %d", result.SignalCount),
		fmt.Sprintf("Costs     : %.2f%% round trip", cfg.RoundTripCost()*100),
	)

	for _, period := range result.SortedPeriods() {
		pr := result.Periods[period]
		fmt.Printf("\n[%s]\n", backtest.PeriodLabel(period))
		PrintFields(pr.Result.Summary(), resultKeys)
		PrintFields(pr.Metrics.Display(), metricKeys)

		if pr.Comparison != nil {
			fmt.Printf("  vs benchmark: alpha %.2f%%, sharpe %+.2f, drawdown %+.2f%%, win rate %+.1f%%\n",
				pr.Comparison.Alpha*100,
				pr.Comparison.SharpeDiff,
				pr.Comparison.DrawdownDiff*100,
				pr.Comparison.WinRateDiff*100,
			)
		}
		if pr.Confidence != nil {
			fmt.Printf("  mean return 90%% band: %.2f%% ~ %.2f%% (P(loss) %.1f%%)\n",
				pr.Confidence.P5*100, pr.Confidence.P95*100, pr.Confidence.ProbLoss*100)
		}
	}

	PrintSuccess(fmt.Sprintf("Backtest completed in %.2fs", time.Since(start).Seconds()))
	return nil
}
