package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tossww/open-insider-trader/internal/pipeline"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "시그널 생성",
	Long: `저장된 내부자 거래로 시그널 파이프라인을 실행합니다.

파이프라인:
  필터 (매수, 임원, 금액, 시총) → 클러스터 감지 → 복합 점수

Example:
  go run ./cmd/insider signals generate
  go run ./cmd/insider signals generate --min-score 2 --top-n 20
  go run ./cmd/insider signals generate --actionable-only --json`,
}

var (
	signalsGenerateCmd = &cobra.Command{
		Use:   "generate",
		Short: "시그널 리포트 생성",
		RunE:  runSignalsGenerate,
	}

	// Flags
	signalsMinScore       float64
	signalsTopN           int
	signalsActionableOnly bool
	signalsJSON           bool
)

func init() {
	rootCmd.AddCommand(signalsCmd)
	signalsCmd.AddCommand(signalsGenerateCmd)

	signalsGenerateCmd.Flags().Float64Var(&signalsMinScore, "min-score", 0, "minimum composite score (0 = no filter)")
	signalsGenerateCmd.Flags().IntVar(&signalsTopN, "top-n", 25, "maximum number of signals to show (0 = all)")
	signalsGenerateCmd.Flags().BoolVar(&signalsActionableOnly, "actionable-only", false, "show actionable signals only")
	signalsGenerateCmd.Flags().BoolVar(&signalsJSON, "json", false, "print the report as JSON")
}

// signalFilterOptions builds post-hoc filters from command flags
func signalFilterOptions(cmd *cobra.Command, minScore float64, topN int, actionableOnly bool) pipeline.FilterOptions {
	opts := pipeline.FilterOptions{
		ActionableOnly: actionableOnly,
		TopN:           topN,
	}
	if cmd.Flags().Changed("min-score") {
		opts.MinScore = &minScore
	}
	return opts
}

func runSignalsGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	report, err := a.generator.Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate signals: %w", err)
	}

	signals := signalFilterOptions(cmd, signalsMinScore, signalsTopN, signalsActionableOnly).Apply(report.Signals)

	if signalsJSON {
		return PrintJSON(map[string]interface{}{
			"report_id":    report.ID,
			"generated_at": report.GeneratedAt,
			"config_hash":  report.ConfigHash,
			"total":        report.TotalSignals(),
			"actionable":   report.ActionableSignals(),
			"strong_buy":   len(report.StrongBuys()),
			"filter_stats": report.FilterStats,
			"signals":      signals,
		})
	}

	PrintHeader("Insider Signal Report",
		fmt.Sprintf("Report ID : %s", report.ID),
		fmt.Sprintf("Generated : %s", report.GeneratedAt.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Config    : %.12s", report.ConfigHash),
	)

	fmt.Println("  Filters:")
	for _, stage := range report.FilterStats.Stages() {
		fmt.Printf("    %-28s %6d\n", stage.Name, stage.Count)
	}
	cs := report.ClusterSummary
	fmt.Printf("  Clusters  : %d (max size %d, %d clustered / %d solo)\n",
		cs.TotalClusters, cs.MaxClusterSize, cs.ClusteredTransactions, cs.SoloTransactions)
	fmt.Printf("  Signals   : %d total, %d actionable, %d strong buy\n",
		report.TotalSignals(), report.ActionableSignals(), len(report.StrongBuys()))
	PrintSeparator()

	if len(signals) == 0 {
		PrintWarning("No signals match the filters")
		return nil
	}

	PrintSignalTable(signals)
	PrintSuccess(fmt.Sprintf("Report generated in %.2fs", time.Since(start).Seconds()))
	return nil
}
