package query

import (
	"context"
	"errors"

	"github.com/everybank/ledger-service/internal/interest"
	"github.com/everybank/ledger-service/internal/repository"
	"github.com/everybank/ledger-service/shared/cqrs"
	"github.com/everybank/ledger-service/shared/ledgererr"
	"github.com/everybank/ledger-service/shared/models"
	"github.com/everybank/ledger-service/shared/utils"
)

// AccountViews is the read model the query side serves accounts from.
// *repository.AccountReadRepository satisfies it.
type AccountViews interface {
	GetByID(ctx context.Context, id int64) (*models.AccountView, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.AccountView, error)
	Refresh(ctx context.Context, id int64) (*models.AccountView, error)
}

// LedgerQueryService serves account reads from the read model and prices
// settlements from the write store.
type LedgerQueryService struct {
	store repository.Store
	views AccountViews
	clock utils.Clock
}

func NewLedgerQueryService(store repository.Store, views AccountViews, clock utils.Clock) *LedgerQueryService {
	return &LedgerQueryService{store: store, views: views, clock: clock}
}

// ComputeSettlement quotes what refunding a product account would pay today.
// It reads the authoritative store, never the cache, and writes nothing.
func (s *LedgerQueryService) ComputeSettlement(ctx context.Context, q cqrs.ComputeSettlementQuery) (*models.SettlementQuote, error) {
	account, err := s.store.GetAccount(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != q.UserID {
		return nil, ledgererr.NotOwner(account.ID, q.UserID)
	}
	if !account.AccountType.IsProduct() {
		return nil, ledgererr.WrongAccountType(account.ID, string(account.AccountType), "settlement")
	}
	contract, err := s.store.GetContractByAccountID(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	quote := interest.Quote(contract, utils.Today(s.clock))

	checking, err := s.store.FindActiveCheckingAccount(ctx, q.UserID)
	switch {
	case err == nil:
		quote.CheckingBalance = checking.CurrentBalance
	case !errors.Is(err, ledgererr.ErrNoActiveCheckingAccount):
		return nil, err
	}
	return &quote, nil
}

// GetAccount fetches a single account view and enforces ownership.
func (s *LedgerQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	view, err := s.views.GetByID(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	if view.UserID != q.RequestingUserID {
		return nil, ledgererr.NotOwner(view.ID, q.RequestingUserID)
	}
	return view, nil
}

func (s *LedgerQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	return s.views.ListByUserID(ctx, q.UserID)
}

// ListTransactions returns an account's ledger rows newest first, each seen
// from that account.
func (s *LedgerQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.TransactionView, error) {
	account, err := s.store.GetAccount(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != q.UserID {
		return nil, ledgererr.NotOwner(account.ID, q.UserID)
	}

	transactions, err := s.store.ListTransactionsByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	views := make([]models.TransactionView, 0, len(transactions))
	for i := range transactions {
		views = append(views, models.TransactionToView(&transactions[i], account.ID))
	}
	return views, nil
}
