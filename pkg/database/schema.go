package database

import (
	"context"
	"fmt"
)

// Tables are the pipeline tables in dependency order
var Tables = []string{
	"companies",
	"insiders",
	"insider_transactions",
	"market_caps",
	"daily_prices",
	"insider_performance",
	"backtest_runs",
}

// schemaStatements creates every table the pipeline reads or writes.
// Statements are idempotent so EnsureSchema can run on every start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id         SERIAL PRIMARY KEY,
		ticker     VARCHAR(10)  NOT NULL UNIQUE,
		name       VARCHAR(200) NOT NULL,
		cik        VARCHAR(10),
		created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS insiders (
		id                   SERIAL PRIMARY KEY,
		name                 VARCHAR(200) NOT NULL,
		company_id           INTEGER      NOT NULL REFERENCES companies(id),
		officer_title        VARCHAR(200),
		is_director          BOOLEAN      NOT NULL DEFAULT FALSE,
		is_officer           BOOLEAN      NOT NULL DEFAULT FALSE,
		is_ten_percent_owner BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at           TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		CONSTRAINT uix_insider_name_company UNIQUE (name, company_id)
	)`,
	`CREATE TABLE IF NOT EXISTS insider_transactions (
		id               BIGSERIAL PRIMARY KEY,
		insider_id       INTEGER          NOT NULL REFERENCES insiders(id),
		company_id       INTEGER          NOT NULL REFERENCES companies(id),
		trade_date       TIMESTAMPTZ      NOT NULL,
		filing_date      TIMESTAMPTZ      NOT NULL,
		transaction_code CHAR(1)          NOT NULL CHECK (transaction_code IN ('P','S','M','A','D')),
		shares           DOUBLE PRECISION NOT NULL CHECK (shares > 0),
		price_per_share  DOUBLE PRECISION,
		total_value      DOUBLE PRECISION,
		source           VARCHAR(20)      NOT NULL DEFAULT 'openinsider',
		created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		CONSTRAINT uix_transaction_unique UNIQUE (insider_id, company_id, trade_date, transaction_code, shares)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_transaction_company_date ON insider_transactions (company_id, filing_date)`,
	`CREATE INDEX IF NOT EXISTS ix_transaction_insider_date ON insider_transactions (insider_id, trade_date)`,
	`CREATE TABLE IF NOT EXISTS market_caps (
		company_id     INTEGER          NOT NULL REFERENCES companies(id),
		date           DATE             NOT NULL,
		market_cap_usd DOUBLE PRECISION NOT NULL,
		source         VARCHAR(20)      NOT NULL DEFAULT 'yahoo',
		PRIMARY KEY (company_id, date)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_prices (
		ticker     VARCHAR(16)      NOT NULL,
		trade_date DATE             NOT NULL,
		open       DOUBLE PRECISION NOT NULL,
		high       DOUBLE PRECISION NOT NULL,
		low        DOUBLE PRECISION NOT NULL,
		close      DOUBLE PRECISION NOT NULL,
		volume     BIGINT           NOT NULL DEFAULT 0,
		PRIMARY KEY (ticker, trade_date)
	)`,
	`CREATE TABLE IF NOT EXISTS insider_performance (
		insider_id         INTEGER PRIMARY KEY REFERENCES insiders(id),
		company_id         INTEGER NOT NULL REFERENCES companies(id),
		win_rate_1w        DOUBLE PRECISION,
		win_rate_1m        DOUBLE PRECISION,
		win_rate_3m        DOUBLE PRECISION,
		win_rate_6m        DOUBLE PRECISION,
		avg_return         DOUBLE PRECISION,
		alpha_vs_spy       DOUBLE PRECISION,
		total_buys         INTEGER NOT NULL DEFAULT 0,
		total_sells        INTEGER NOT NULL DEFAULT 0,
		last_calculated_at TIMESTAMPTZ,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS backtest_runs (
		id                  UUID PRIMARY KEY,
		config_hash         VARCHAR(64)      NOT NULL,
		holding_period_days INTEGER          NOT NULL,
		total_trades        INTEGER          NOT NULL,
		win_rate            DOUBLE PRECISION NOT NULL,
		avg_net_return      DOUBLE PRECISION NOT NULL,
		alpha               DOUBLE PRECISION,
		result              JSONB            NOT NULL,
		created_at          TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates missing tables and indexes
func (db *DB) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
