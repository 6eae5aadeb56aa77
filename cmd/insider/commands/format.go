package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted command header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, line := range lines {
			fmt.Printf("  %s\n", line)
		}
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Println()
	fmt.Printf("✅ %s\n", message)
}

// PrintFields prints key/value pairs in the given key order, aligned
func PrintFields(fields map[string]string, keys []string) {
	width := 0
	for _, k := range keys {
		if len(k) > width {
			width = len(k)
		}
	}
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			continue
		}
		fmt.Printf("  %-*s : %s\n", width, k, v)
	}
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintSignalTable prints ranked signals as a fixed-width table
func PrintSignalTable(signals []contracts.Signal) {
	fmt.Printf("  %-4s %-6s %-22s %-12s %12s %5s %7s %5s  %s\n",
		"#", "TICKER", "INSIDER", "FILED", "VALUE", "CLUS", "SCORE", "ALERT", "CATEGORY")
	PrintSeparator()
	for i, s := range signals {
		fmt.Printf("  %-4d %-6s %-22s %-12s %12s %5d %7.3f %5d  %s\n",
			i+1,
			s.Ticker,
			truncate(s.InsiderName, 22),
			s.FilingDate.Format("2006-01-02"),
			formatUSD(s.Value()),
			s.ClusterSize,
			s.CompositeScore,
			s.AlertScore,
			s.Category,
		)
	}
}

// formatUSD renders a dollar amount with a K/M/B suffix
func formatUSD(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.1fK", v/1e3)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}

// parsePeriods parses "5,21,-1" into holding periods
func parsePeriods(raw string) ([]int, error) {
	var periods []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid holding period %q", part)
		}
		if p == 0 || p < -1 {
			return nil, fmt.Errorf("holding period must be positive or -1, got %d", p)
		}
		periods = append(periods, p)
	}
	return periods, nil
}
