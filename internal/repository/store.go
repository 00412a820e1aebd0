package repository

import (
	"context"
	"time"

	"github.com/everybank/ledger-service/shared/models"
)

// Store is the authoritative write store for accounts, contracts and the
// transaction ledger. Reads outside WithinTx see committed state only.
type Store interface {
	// WithinTx runs fn as one unit of work. A nil return commits every write
	// made through tx; any error rolls all of them back.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error)
	FindActiveCheckingAccount(ctx context.Context, userID int64) (*models.Account, error)
	GetContractByAccountID(ctx context.Context, accountID int64) (*models.Contract, error)
	ListTransactionsByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error)
	// ListMaturedContracts returns IN_PROGRESS contracts whose maturity date
	// is on or before today.
	ListMaturedContracts(ctx context.Context, today time.Time) ([]models.Contract, error)
}

// Tx is the view of the store inside a unit of work.
type Tx interface {
	// LockAccounts locks the rows for ids in ascending id order and returns
	// their current state keyed by id. Call it at most once per unit of work.
	LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error)
	FindActiveCheckingAccountID(ctx context.Context, userID int64) (int64, error)
	CreateAccount(ctx context.Context, account *models.Account) error
	UpdateAccount(ctx context.Context, account *models.Account) error
	GetContractByAccountID(ctx context.Context, accountID int64) (*models.Contract, error)
	CreateContract(ctx context.Context, contract *models.Contract) error
	UpdateContract(ctx context.Context, contract *models.Contract) error
	AppendTransaction(ctx context.Context, transaction *models.Transaction) error
}
