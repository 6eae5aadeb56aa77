package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tossww/open-insider-trader/internal/api"
	"github.com/tossww/open-insider-trader/internal/api/handlers"
	"github.com/tossww/open-insider-trader/internal/api/stream"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /api/signals                     - 시그널 조회 (min_score, top_n, actionable_only)
  GET  /api/signals/stats               - 파이프라인 통계
  GET  /api/transactions                - 거래 조회 (ticker, limit, days)
  GET  /api/companies/{ticker}          - 종목과 최근 거래
  POST /api/backtest                    - 백테스트 실행
  GET  /api/backtest/runs               - 저장된 백테스트
  GET  /api/backtest/runs/{id}          - 백테스트 상세
  GET  /api/insiders/{id}/performance   - 내부자 트랙레코드
  GET  /ws/signals                      - 시그널 리포트 실시간 수신 (websocket)

Example:
  go run ./cmd/insider api
  go run ./cmd/insider api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "run scheduled jobs in the API process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Open Insider Trader API Server ===")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	// 1. Websocket hub receives every generated report
	hub := stream.NewHub(stream.DefaultTopN, log)
	defer hub.Close()
	a.generator.AddPublisher(hub)

	// 2. Create handlers
	router := api.NewRouter(api.Handlers{
		Signals:      handlers.NewSignalHandler(a.latest, log),
		Transactions: handlers.NewTransactionHandler(a.transactions, log),
		Backtest:     handlers.NewBacktestHandler(a.engine, a.latest, a.runs, a.signalCfg.Backtest.HoldingPeriods, log),
		Performance:  handlers.NewPerformanceHandler(a.perfStore, a.tracker, log),
		Stream:       hub,
	}, log)

	// 3. Optional in-process scheduler
	if apiWithScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 4. Create server
	server := api.New(a.cfg, log, router)

	// 5. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
