package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/everybank/ledger-service/shared/ledgererr"
	"github.com/everybank/ledger-service/shared/models"
	"github.com/everybank/ledger-service/shared/utils"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const accountColumns = `id, user_id, company_code, account_type, current_balance, account_state,
	maturity_date, last_transaction_date, created_at`

const contractColumns = `contract_id, kind, user_id, product_code, interest_rate_type, annual_rate, annual_rate2,
	term_months, contract_date, maturity_date, contract_condition, account_id, principal, monthly_payment,
	current_payment_count, latest_payment_date`

const transactionColumns = `id, transaction_type, amount, from_account_id, to_account_id, post_balance,
	from_post_balance, to_post_balance, created_at`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresStore is the PostgreSQL write store. Row locks are taken with
// SELECT ... FOR UPDATE inside the unit of work's SQL transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&postgresTx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return getAccount(ctx, s.db, id)
}

func (s *PostgresStore) ListAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *PostgresStore) FindActiveCheckingAccount(ctx context.Context, userID int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
		WHERE user_id = $1 AND account_type = 'CHECKING' AND account_state = 'ACTIVE'`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledgererr.NoActiveCheckingAccount(userID)
	}
	return account, err
}

func (s *PostgresStore) GetContractByAccountID(ctx context.Context, accountID int64) (*models.Contract, error) {
	return getContract(ctx, s.db, accountID)
}

func (s *PostgresStore) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY id DESC`
	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var from, to, fromBalance, toBalance sql.NullInt64
		if err := rows.Scan(
			&t.ID, &t.TransactionType, &t.Amount, &from, &to, &t.PostBalance,
			&fromBalance, &toBalance, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.FromAccountID = int64Ptr(from)
		t.ToAccountID = int64Ptr(to)
		t.FromPostBalance = int64Ptr(fromBalance)
		t.ToPostBalance = int64Ptr(toBalance)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (s *PostgresStore) ListMaturedContracts(ctx context.Context, today time.Time) ([]models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE contract_condition = 'IN_PROGRESS' AND maturity_date <= $1
		ORDER BY contract_id`
	rows, err := s.db.QueryContext(ctx, query, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list matured contracts: %w", err)
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *contract)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list matured contracts: %w", err)
	}
	return contracts, nil
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, query, pq.Array(sorted))
	if err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]*models.Account, len(sorted))
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		locked[account.ID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to lock accounts: %w", err)
	}
	for _, id := range sorted {
		if _, ok := locked[id]; !ok {
			return nil, ledgererr.AccountNotFound(id)
		}
	}
	return locked, nil
}

func (t *postgresTx) FindActiveCheckingAccountID(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT id FROM accounts WHERE user_id = $1 AND account_type = 'CHECKING' AND account_state = 'ACTIVE'`
	var id int64
	err := t.tx.QueryRowContext(ctx, query, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ledgererr.NoActiveCheckingAccount(userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find checking account: %w", err)
	}
	return id, nil
}

func (t *postgresTx) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (user_id, company_code, account_type, current_balance, account_state,
			maturity_date, last_transaction_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query,
		account.UserID, account.CompanyCode, account.AccountType, account.CurrentBalance,
		account.AccountState, nullDate(account.MaturityDate), account.LastTransactionDate, account.CreatedAt,
	).Scan(&account.ID)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == "uq_accounts_active_checking" {
		return ledgererr.DuplicateCheckingAccount(account.UserID)
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateAccount(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET current_balance = $2, account_state = $3, last_transaction_date = $4
		WHERE id = $1
	`
	result, err := t.tx.ExecContext(ctx, query,
		account.ID, account.CurrentBalance, account.AccountState, account.LastTransactionDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ledgererr.AccountNotFound(account.ID)
	}
	return nil
}

func (t *postgresTx) GetContractByAccountID(ctx context.Context, accountID int64) (*models.Contract, error) {
	return getContract(ctx, t.tx, accountID)
}

func (t *postgresTx) CreateContract(ctx context.Context, c *models.Contract) error {
	query := `
		INSERT INTO contracts (kind, user_id, product_code, interest_rate_type, annual_rate, annual_rate2,
			term_months, contract_date, maturity_date, contract_condition, account_id, principal,
			monthly_payment, current_payment_count, latest_payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING contract_id
	`
	err := t.tx.QueryRowContext(ctx, query,
		c.Kind, c.UserID, c.ProductCode, c.Option.InterestRateType, c.Option.AnnualRate, c.Option.AnnualRate2,
		c.Option.TermMonths, c.ContractDate, c.MaturityDate, c.ContractCondition, c.AccountID, c.Principal,
		c.MonthlyPayment, c.CurrentPaymentCount, c.LatestPaymentDate,
	).Scan(&c.ContractID)
	if err != nil {
		return fmt.Errorf("failed to create contract: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateContract(ctx context.Context, c *models.Contract) error {
	query := `
		UPDATE contracts
		SET contract_condition = $2, current_payment_count = $3, latest_payment_date = $4
		WHERE account_id = $1
	`
	result, err := t.tx.ExecContext(ctx, query, c.AccountID, c.ContractCondition, c.CurrentPaymentCount, c.LatestPaymentDate)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ledgererr.ContractNotFound(c.AccountID)
	}
	return nil
}

func (t *postgresTx) AppendTransaction(ctx context.Context, tr *models.Transaction) error {
	query := `
		INSERT INTO transactions (transaction_type, amount, from_account_id, to_account_id, post_balance,
			from_post_balance, to_post_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query,
		tr.TransactionType, tr.Amount, tr.FromAccountID, tr.ToAccountID, tr.PostBalance,
		tr.FromPostBalance, tr.ToPostBalance, tr.CreatedAt,
	).Scan(&tr.ID)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

func getAccount(ctx context.Context, q querier, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledgererr.AccountNotFound(id)
	}
	return account, err
}

// Contract rows are only written while their account row is locked.
func getContract(ctx context.Context, q querier, accountID int64) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE account_id = $1`
	contract, err := scanContract(q.QueryRowContext(ctx, query, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledgererr.ContractNotFound(accountID)
	}
	return contract, err
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var maturity sql.NullTime
	err := row.Scan(
		&a.ID, &a.UserID, &a.CompanyCode, &a.AccountType, &a.CurrentBalance, &a.AccountState,
		&maturity, &a.LastTransactionDate, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	if maturity.Valid {
		a.MaturityDate = utils.DateOf(maturity.Time)
	}
	return &a, nil
}

func scanContract(row rowScanner) (*models.Contract, error) {
	var c models.Contract
	var latest sql.NullTime
	err := row.Scan(
		&c.ContractID, &c.Kind, &c.UserID, &c.ProductCode, &c.Option.InterestRateType,
		&c.Option.AnnualRate, &c.Option.AnnualRate2, &c.Option.TermMonths, &c.ContractDate, &c.MaturityDate,
		&c.ContractCondition, &c.AccountID, &c.Principal, &c.MonthlyPayment, &c.CurrentPaymentCount, &latest,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan contract: %w", err)
	}
	c.ContractDate = utils.DateOf(c.ContractDate)
	c.MaturityDate = utils.DateOf(c.MaturityDate)
	if latest.Valid {
		d := utils.DateOf(latest.Time)
		c.LatestPaymentDate = &d
	}
	return &c, nil
}

func nullDate(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
