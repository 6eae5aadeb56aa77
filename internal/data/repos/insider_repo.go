package repos

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

// InsiderRepository implements contracts.InsiderRepository
type InsiderRepository struct {
	pool *pgxpool.Pool
}

// NewInsiderRepository creates a new insider repository
func NewInsiderRepository(pool *pgxpool.Pool) *InsiderRepository {
	return &InsiderRepository{pool: pool}
}

// GetInsider returns the insider by id, or nil when unknown
func (r *InsiderRepository) GetInsider(ctx context.Context, id int64) (*contracts.Insider, error) {
	var ins contracts.Insider
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, company_id, COALESCE(officer_title, ''), created_at
		FROM insiders
		WHERE id = $1
	`, id).Scan(&ins.ID, &ins.Name, &ins.CompanyID, &ins.OfficerTitle, &ins.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insider: %w", err)
	}
	return &ins, nil
}

// InsidersWithMinPurchases lists insiders with at least minTrades purchases
func (r *InsiderRepository) InsidersWithMinPurchases(ctx context.Context, minTrades int) ([]contracts.Insider, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.name, i.company_id, COALESCE(i.officer_title, ''), i.created_at
		FROM insiders i
		JOIN insider_transactions it ON it.insider_id = i.id
		WHERE it.transaction_code = 'P'
		GROUP BY i.id
		HAVING COUNT(it.id) >= $1
		ORDER BY i.id
	`, minTrades)
	if err != nil {
		return nil, fmt.Errorf("failed to query insiders: %w", err)
	}
	defer rows.Close()

	var insiders []contracts.Insider
	for rows.Next() {
		var ins contracts.Insider
		if err := rows.Scan(&ins.ID, &ins.Name, &ins.CompanyID, &ins.OfficerTitle, &ins.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insider: %w", err)
		}
		insiders = append(insiders, ins)
	}
	return insiders, rows.Err()
}

// CountTransactions counts an insider's transactions with the given code
func (r *InsiderRepository) CountTransactions(ctx context.Context, insiderID int64, code contracts.TransactionCode) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM insider_transactions
		WHERE insider_id = $1 AND transaction_code = $2
	`, insiderID, string(code)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}
