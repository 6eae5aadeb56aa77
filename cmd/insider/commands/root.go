package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	signalConfigPath string
	verbose          bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "insider",
	Short: "Open Insider Trader - 내부자 매수 시그널 시스템",
	Long: `Open Insider Trader CLI

Form 4 내부자 매수를 수집하고 점수화하여 시그널을 만들고,
과거 가격으로 백테스트합니다.

Usage:
  go run ./cmd/insider [command]

Examples:
  go run ./cmd/insider collect openinsider
  go run ./cmd/insider signals generate --top-n 20
  go run ./cmd/insider backtest run --periods 5,21,63
  go run ./cmd/insider api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&signalConfigPath, "signal-config", "", "signal config YAML (default SIGNAL_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
