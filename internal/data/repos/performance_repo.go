package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

// PerformanceRepository implements contracts.PerformanceRepository
type PerformanceRepository struct {
	pool *pgxpool.Pool
}

// NewPerformanceRepository creates a new performance repository
func NewPerformanceRepository(pool *pgxpool.Pool) *PerformanceRepository {
	return &PerformanceRepository{pool: pool}
}

// GetPerformance returns the stored row for an insider, or nil when absent
func (r *PerformanceRepository) GetPerformance(ctx context.Context, insiderID int64) (*contracts.InsiderPerformance, error) {
	var p contracts.InsiderPerformance
	err := r.pool.QueryRow(ctx, `
		SELECT
			ip.insider_id, i.name, ip.company_id,
			ip.win_rate_1w, ip.win_rate_1m, ip.win_rate_3m, ip.win_rate_6m,
			ip.avg_return, ip.alpha_vs_spy,
			ip.total_buys, ip.total_sells, ip.last_calculated_at
		FROM insider_performance ip
		JOIN insiders i ON i.id = ip.insider_id
		WHERE ip.insider_id = $1
	`, insiderID).Scan(
		&p.InsiderID, &p.InsiderName, &p.CompanyID,
		&p.WinRate1W, &p.WinRate1M, &p.WinRate3M, &p.WinRate6M,
		&p.AvgReturn, &p.AlphaVsSPY,
		&p.TotalBuys, &p.TotalSells, &p.LastCalculatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get performance: %w", err)
	}
	return &p, nil
}

// SavePerformance upserts the row keyed by insider id
func (r *PerformanceRepository) SavePerformance(ctx context.Context, p *contracts.InsiderPerformance) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO insider_performance (
			insider_id, company_id,
			win_rate_1w, win_rate_1m, win_rate_3m, win_rate_6m,
			avg_return, alpha_vs_spy,
			total_buys, total_sells, last_calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (insider_id) DO UPDATE SET
			win_rate_1w = EXCLUDED.win_rate_1w,
			win_rate_1m = EXCLUDED.win_rate_1m,
			win_rate_3m = EXCLUDED.win_rate_3m,
			win_rate_6m = EXCLUDED.win_rate_6m,
			avg_return = EXCLUDED.avg_return,
			alpha_vs_spy = EXCLUDED.alpha_vs_spy,
			total_buys = EXCLUDED.total_buys,
			total_sells = EXCLUDED.total_sells,
			last_calculated_at = EXCLUDED.last_calculated_at
	`,
		p.InsiderID, p.CompanyID,
		p.WinRate1W, p.WinRate1M, p.WinRate3M, p.WinRate6M,
		p.AvgReturn, p.AlphaVsSPY,
		p.TotalBuys, p.TotalSells, p.LastCalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save performance: %w", err)
	}
	return nil
}

// winRateColumns whitelists period labels for CompanyTrackRecord
var winRateColumns = map[string]string{
	"1w": "win_rate_1w",
	"1m": "win_rate_1m",
	"3m": "win_rate_3m",
	"6m": "win_rate_6m",
}

// CompanyTrackRecord averages the period win rate and alpha over every insider
// of a company that has both values. Returns nil when no insider qualifies.
func (r *PerformanceRepository) CompanyTrackRecord(ctx context.Context, companyID int64, period string) (*contracts.TrackRecord, error) {
	col, ok := winRateColumns[period]
	if !ok {
		return nil, fmt.Errorf("unknown performance period %q", period)
	}

	var winRate, alpha *float64
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT AVG(ip.%[1]s), AVG(ip.alpha_vs_spy)
		FROM insider_performance ip
		JOIN insiders i ON i.id = ip.insider_id
		WHERE i.company_id = $1
		  AND ip.%[1]s IS NOT NULL
		  AND ip.alpha_vs_spy IS NOT NULL
	`, col), companyID).Scan(&winRate, &alpha)
	if err != nil {
		return nil, fmt.Errorf("failed to get company track record: %w", err)
	}
	if winRate == nil {
		return nil, nil
	}

	record := &contracts.TrackRecord{WinRate: *winRate}
	if alpha != nil {
		record.Alpha = *alpha
	}
	return record, nil
}
