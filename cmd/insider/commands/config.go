package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tossww/open-insider-trader/internal/signalconfig"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "설정 검증",
	Long: `환경 변수와 시그널 설정 YAML을 검증합니다.

Example:
  go run ./cmd/insider config check
  go run ./cmd/insider config check --signal-config configs/signals.yaml`,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "설정 파일 검증 및 요약",
	RunE:  runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	sc := s.signalCfg

	hash, err := signalconfig.Hash(sc)
	if err != nil {
		return fmt.Errorf("hash signal config: %w", err)
	}

	PrintHeader("Configuration",
		fmt.Sprintf("Env           : %s", s.cfg.Env),
		fmt.Sprintf("Signal config : %s", s.cfg.SignalConfigPath),
		fmt.Sprintf("Hash          : %s", hash),
	)

	fmt.Println("  Executive weights:")
	for _, title := range sc.ExecutiveTitles() {
		fmt.Printf("    %-24s %.2f\n", title, sc.ExecutiveWeights[title])
	}

	sizes := make([]int, 0, len(sc.ClusterWeights))
	for size := range sc.ClusterWeights {
		sizes = append(sizes, size)
	}
	sort.Ints(sizes)
	fmt.Println("  Cluster weights:")
	for _, size := range sizes {
		label := fmt.Sprintf("%d", size)
		if size == 5 {
			label = "5+"
		}
		fmt.Printf("    %-24s %.2f\n", label, sc.ClusterWeights[size])
	}

	PrintSeparator()
	fmt.Printf("  Min trade value    : %s\n", formatUSD(sc.Filtering.MinTradeValue))
	fmt.Printf("  Cluster window     : %d days\n", sc.Filtering.ClusterWindowDays)
	fmt.Printf("  Min signal score   : %.2f\n", sc.Scoring.MinSignalScore)
	fmt.Printf("  Holding periods    : %v\n", sc.Backtest.HoldingPeriods)
	fmt.Printf("  Round trip cost    : %.2f%%\n", sc.Backtest.RoundTripCost()*100)
	fmt.Printf("  Benchmark          : %s\n", sc.Backtest.BenchmarkTicker)

	warnings := signalconfig.Warn(sc)
	if len(warnings) > 0 {
		PrintSeparator()
		for _, w := range warnings {
			fmt.Printf("  ⚠️  [%s] %s\n", w.Code, w.Message)
		}
	}

	PrintSuccess("Configuration is valid")
	return nil
}
