package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the DDL for the ledger tables. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                    BIGSERIAL PRIMARY KEY,
	user_id               BIGINT      NOT NULL,
	company_code          TEXT        NOT NULL,
	account_type          TEXT        NOT NULL CHECK (account_type IN ('CHECKING', 'DEPOSIT', 'SAVING')),
	current_balance       BIGINT      NOT NULL DEFAULT 0 CHECK (current_balance >= 0),
	account_state         TEXT        NOT NULL CHECK (account_state IN ('ACTIVE', 'EARLY_CLOSED', 'EXPIRED')),
	maturity_date         DATE,
	last_transaction_date TIMESTAMPTZ NOT NULL,
	created_at            TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts (user_id);

CREATE UNIQUE INDEX IF NOT EXISTS uq_accounts_active_checking
	ON accounts (user_id)
	WHERE account_type = 'CHECKING' AND account_state = 'ACTIVE';

CREATE TABLE IF NOT EXISTS contracts (
	contract_id           BIGSERIAL PRIMARY KEY,
	kind                  TEXT          NOT NULL CHECK (kind IN ('DEPOSIT', 'SAVING')),
	user_id               BIGINT        NOT NULL,
	product_code          TEXT          NOT NULL,
	interest_rate_type    TEXT          NOT NULL CHECK (interest_rate_type IN ('SIMPLE', 'COMPOUND')),
	annual_rate           NUMERIC(7, 4) NOT NULL,
	annual_rate2          NUMERIC(7, 4) NOT NULL,
	term_months           INT           NOT NULL CHECK (term_months > 0),
	contract_date         DATE          NOT NULL,
	maturity_date         DATE          NOT NULL,
	contract_condition    TEXT          NOT NULL,
	account_id            BIGINT        NOT NULL UNIQUE REFERENCES accounts (id),
	principal             BIGINT        NOT NULL DEFAULT 0,
	monthly_payment       BIGINT        NOT NULL DEFAULT 0,
	current_payment_count INT           NOT NULL DEFAULT 0 CHECK (current_payment_count >= 0),
	latest_payment_date   DATE
);

CREATE INDEX IF NOT EXISTS idx_contracts_maturity ON contracts (maturity_date) WHERE contract_condition = 'IN_PROGRESS';

CREATE TABLE IF NOT EXISTS transactions (
	id                BIGSERIAL PRIMARY KEY,
	transaction_type  TEXT        NOT NULL,
	amount            BIGINT      NOT NULL CHECK (amount > 0),
	from_account_id   BIGINT REFERENCES accounts (id),
	to_account_id     BIGINT REFERENCES accounts (id),
	post_balance      BIGINT      NOT NULL,
	from_post_balance BIGINT,
	to_post_balance   BIGINT,
	created_at        TIMESTAMPTZ NOT NULL,
	CHECK (from_account_id IS NOT NULL OR to_account_id IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions (from_account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions (to_account_id);
`

// Migrate applies Schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
