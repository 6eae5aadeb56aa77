package repos

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tossww/open-insider-trader/internal/contracts"
)

// TransactionRepository implements contracts.TransactionRepository
// ⭐ SSOT: 내부자 거래 저장/조회는 여기서만
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionSelect = `
	SELECT
		it.id,
		it.insider_id,
		it.company_id,
		it.trade_date,
		it.filing_date,
		it.transaction_code,
		it.shares,
		it.price_per_share,
		it.total_value,
		it.source,
		c.ticker,
		c.name,
		i.name,
		COALESCE(i.officer_title, ''),
		mc.market_cap_usd
	FROM insider_transactions it
	JOIN companies c ON it.company_id = c.id
	JOIN insiders i ON it.insider_id = i.id
	LEFT JOIN market_caps mc ON (
		mc.company_id = c.id
		AND mc.date = DATE(it.filing_date)
	)
`

// LoadTransactions returns every stored transaction joined with its company,
// insider and filing-date market cap, newest filing first
func (r *TransactionRepository) LoadTransactions(ctx context.Context) ([]contracts.Transaction, error) {
	rows, err := r.pool.Query(ctx, transactionSelect+` ORDER BY it.filing_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListTransactions returns transactions matching q, newest filing first
func (r *TransactionRepository) ListTransactions(ctx context.Context, q contracts.TransactionQuery) ([]contracts.Transaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.Ticker != "" {
		args = append(args, strings.ToUpper(q.Ticker))
		where = append(where, fmt.Sprintf("c.ticker = $%d", len(args)))
	}
	if q.InsiderID > 0 {
		args = append(args, q.InsiderID)
		where = append(where, fmt.Sprintf("it.insider_id = $%d", len(args)))
	}
	if q.Code != "" {
		args = append(args, string(q.Code))
		where = append(where, fmt.Sprintf("it.transaction_code = $%d", len(args)))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		where = append(where, fmt.Sprintf("it.filing_date >= $%d", len(args)))
	}

	query := transactionSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY it.filing_date DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]contracts.Transaction, error) {
	defer rows.Close()

	var txns []contracts.Transaction
	for rows.Next() {
		var (
			t      contracts.Transaction
			code   string
			source string
		)
		err := rows.Scan(
			&t.ID,
			&t.InsiderID,
			&t.CompanyID,
			&t.TradeDate,
			&t.FilingDate,
			&code,
			&t.Shares,
			&t.PricePerShare,
			&t.TotalValue,
			&source,
			&t.Ticker,
			&t.CompanyName,
			&t.InsiderName,
			&t.OfficerTitle,
			&t.MarketCapUSD,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.TransactionCode = contracts.TransactionCode(code)
		t.Source = contracts.Source(source)
		txns = append(txns, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return txns, nil
}

// SaveTransactions upserts companies and insiders and inserts transactions
// that are not stored yet. Returns the number of new rows.
func (r *TransactionRepository) SaveTransactions(ctx context.Context, txns []contracts.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	saved := 0
	for _, t := range txns {
		companyID, err := upsertCompany(ctx, tx, t.Ticker, t.CompanyName)
		if err != nil {
			return 0, fmt.Errorf("company %s: %w", t.Ticker, err)
		}
		insiderID, err := upsertInsider(ctx, tx, t.InsiderName, companyID, t.OfficerTitle)
		if err != nil {
			return 0, fmt.Errorf("insider %s: %w", t.InsiderName, err)
		}

		source := t.Source
		if source == "" {
			source = contracts.SourceOpenInsider
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO insider_transactions (
				insider_id, company_id, trade_date, filing_date,
				transaction_code, shares, price_per_share, total_value, source
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT ON CONSTRAINT uix_transaction_unique DO NOTHING
		`,
			insiderID, companyID, t.TradeDate, t.FilingDate,
			string(t.TransactionCode), t.Shares, t.PricePerShare, t.TotalValue, string(source),
		)
		if err != nil {
			return 0, fmt.Errorf("insert transaction %s/%s: %w", t.Ticker, t.InsiderName, err)
		}
		saved += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return saved, nil
}

// GetCompany returns the company for ticker, or nil when unknown
func (r *TransactionRepository) GetCompany(ctx context.Context, ticker string) (*contracts.Company, error) {
	var (
		c   contracts.Company
		cik *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, ticker, name, cik, created_at
		FROM companies
		WHERE ticker = $1
	`, strings.ToUpper(ticker)).Scan(&c.ID, &c.Ticker, &c.Name, &cik, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	if cik != nil {
		c.CIK = *cik
	}
	return &c, nil
}

func upsertCompany(ctx context.Context, tx pgx.Tx, ticker, name string) (int64, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if name == "" {
		name = ticker
	}

	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO companies (ticker, name)
		VALUES ($1, $2)
		ON CONFLICT (ticker) DO UPDATE SET name = companies.name
		RETURNING id
	`, ticker, name).Scan(&id)
	return id, err
}

func upsertInsider(ctx context.Context, tx pgx.Tx, name string, companyID int64, title string) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO insiders (name, company_id, officer_title)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT ON CONSTRAINT uix_insider_name_company DO UPDATE SET
			officer_title = COALESCE(insiders.officer_title, EXCLUDED.officer_title)
		RETURNING id
	`, name, companyID, title).Scan(&id)
	return id, err
}
