package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MarketCapRepository implements contracts.MarketCapRepository
// ⭐ SSOT: 시가총액 스냅샷 저장소는 여기서만
type MarketCapRepository struct {
	pool *pgxpool.Pool
}

// NewMarketCapRepository creates a new market cap repository
func NewMarketCapRepository(pool *pgxpool.Pool) *MarketCapRepository {
	return &MarketCapRepository{pool: pool}
}

// GetMarketCap returns the stored cap for ticker on date, or nil when absent
func (r *MarketCapRepository) GetMarketCap(ctx context.Context, ticker string, date time.Time) (*float64, error) {
	var value float64
	err := r.pool.QueryRow(ctx, `
		SELECT mc.market_cap_usd
		FROM market_caps mc
		JOIN companies c ON c.id = mc.company_id
		WHERE c.ticker = $1 AND mc.date = $2
	`, strings.ToUpper(ticker), date.Format("2006-01-02")).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get market cap: %w", err)
	}
	return &value, nil
}

// SaveMarketCap upserts a snapshot. Unknown tickers are skipped.
func (r *MarketCapRepository) SaveMarketCap(ctx context.Context, ticker string, date time.Time, value float64, source string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO market_caps (company_id, date, market_cap_usd, source)
		SELECT id, $2, $3, $4 FROM companies WHERE ticker = $1
		ON CONFLICT (company_id, date) DO UPDATE SET
			market_cap_usd = EXCLUDED.market_cap_usd,
			source = EXCLUDED.source
	`, strings.ToUpper(ticker), date.Format("2006-01-02"), value, source)
	if err != nil {
		return fmt.Errorf("failed to save market cap: %w", err)
	}
	return nil
}
