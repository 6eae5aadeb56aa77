package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

// BacktestRunRepository implements contracts.BacktestRunRepository
type BacktestRunRepository struct {
	pool *pgxpool.Pool
}

// NewBacktestRunRepository creates a new backtest run repository
func NewBacktestRunRepository(pool *pgxpool.Pool) *BacktestRunRepository {
	return &BacktestRunRepository{pool: pool}
}

// SaveRun inserts a run, assigning an id when empty
func (r *BacktestRunRepository) SaveRun(ctx context.Context, run *contracts.BacktestRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO backtest_runs (
			id, config_hash, holding_period_days, total_trades,
			win_rate, avg_net_return, alpha, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`,
		run.ID, run.ConfigHash, run.HoldingPeriodDays, run.TotalTrades,
		run.WinRate, run.AvgNetReturn, run.Alpha, []byte(run.Result),
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save backtest run: %w", err)
	}
	return nil
}

// GetRun returns a run by id, or nil when absent
func (r *BacktestRunRepository) GetRun(ctx context.Context, id string) (*contracts.BacktestRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}

	row := r.pool.QueryRow(ctx, `
		SELECT id::text, config_hash, holding_period_days, total_trades,
			win_rate, avg_net_return, alpha, result, created_at
		FROM backtest_runs
		WHERE id = $1
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get backtest run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first
func (r *BacktestRunRepository) ListRuns(ctx context.Context, limit int) ([]contracts.BacktestRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, config_hash, holding_period_days, total_trades,
			win_rate, avg_net_return, alpha, result, created_at
		FROM backtest_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	var runs []contracts.BacktestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backtest run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row pgx.Row) (*contracts.BacktestRun, error) {
	var (
		run    contracts.BacktestRun
		result []byte
	)
	err := row.Scan(
		&run.ID, &run.ConfigHash, &run.HoldingPeriodDays, &run.TotalTrades,
		&run.WinRate, &run.AvgNetReturn, &run.Alpha, &result, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Result = result
	return &run, nil
}
