package main

import (
	"os"

	"github.com/tossww/open-insider-trader/cmd/insider/commands"
)

// main is the entry point for the insider CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/insider [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
