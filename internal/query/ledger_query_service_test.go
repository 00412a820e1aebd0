package query

import (
	"context"
	"testing"
	"time"

	"github.com/everybank/ledger-service/internal/command"
	"github.com/everybank/ledger-service/internal/repository"
	"github.com/everybank/ledger-service/shared/cqrs"
	"github.com/everybank/ledger-service/shared/ledgererr"
	"github.com/everybank/ledger-service/shared/models"
	"github.com/everybank/ledger-service/shared/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeViews serves views straight from the store and records refreshes.
type storeViews struct {
	store     repository.Store
	refreshed []int64
}

func (v *storeViews) GetByID(ctx context.Context, id int64) (*models.AccountView, error) {
	account, err := v.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	return models.AccountToView(account), nil
}

func (v *storeViews) ListByUserID(ctx context.Context, userID int64) ([]models.AccountView, error) {
	accounts, err := v.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var views []models.AccountView
	for i := range accounts {
		views = append(views, *models.AccountToView(&accounts[i]))
	}
	return views, nil
}

func (v *storeViews) Refresh(ctx context.Context, id int64) (*models.AccountView, error) {
	v.refreshed = append(v.refreshed, id)
	return v.GetByID(ctx, id)
}

var opened = time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)

type ledger struct {
	store    *repository.MemoryStore
	commands *command.LedgerCommandService
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	store := repository.NewMemoryStore()
	return &ledger{
		store:    store,
		commands: command.NewLedgerCommandService(store, nil, "", utils.FixedClock{At: opened}),
	}
}

func (l *ledger) queriesAt(at time.Time) *LedgerQueryService {
	return NewLedgerQueryService(l.store, &storeViews{store: l.store}, utils.FixedClock{At: at})
}

func (l *ledger) openChecking(t *testing.T, userID, balance int64) *models.Account {
	t.Helper()
	ctx := context.Background()
	account, err := l.commands.OpenCheckingAccount(ctx, cqrs.OpenCheckingAccountCommand{UserID: userID, CompanyCode: "EVB"})
	require.NoError(t, err)
	if balance > 0 {
		_, err = l.commands.ExternalDeposit(ctx, cqrs.ExternalDepositCommand{UserID: userID, Amount: balance})
		require.NoError(t, err)
	}
	return account
}

func TestComputeSettlementSavingEarlyTermination(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.openChecking(t, 1, 3_500_000)

	sub, err := l.commands.SubscribeSaving(ctx, cqrs.SubscribeSavingCommand{
		UserID:      1,
		ProductCode: "SAV-12",
		CompanyCode: "EVB",
		Option: models.ContractOption{
			InterestRateType: models.RateTypeSimple,
			AnnualRate:       decimal.RequireFromString("2.5"),
			AnnualRate2:      decimal.RequireFromString("3.0"),
			TermMonths:       12,
		},
		MonthlyPayment: 500_000,
	})
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		_, err := l.commands.PayIntoProduct(ctx, cqrs.PayIntoProductCommand{UserID: 1, ProductAccountID: sub.Account.ID, Amount: 500_000})
		require.NoError(t, err)
	}

	quote, err := l.queriesAt(opened.AddDate(0, 0, 180)).ComputeSettlement(ctx, cqrs.ComputeSettlementQuery{AccountID: sub.Account.ID, UserID: 1})
	require.NoError(t, err)

	assert.False(t, quote.IsMatured)
	assert.True(t, quote.AppliedRate.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, int64(3_000_000), quote.Principal)
	assert.Equal(t, int64(9226), quote.Interest)
	assert.Equal(t, int64(3_009_226), quote.Payout)
	assert.Equal(t, int64(500_000), quote.CheckingBalance)
	assert.Len(t, quote.Installments, 6)
}

func TestComputeSettlementDepositAtMaturity(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.openChecking(t, 1, 10_000_000)

	sub, err := l.commands.SubscribeDeposit(ctx, cqrs.SubscribeDepositCommand{
		UserID:      1,
		ProductCode: "DEP-12",
		CompanyCode: "EVB",
		Option: models.ContractOption{
			InterestRateType: models.RateTypeSimple,
			AnnualRate:       decimal.RequireFromString("2.0"),
			AnnualRate2:      decimal.RequireFromString("2.4"),
			TermMonths:       12,
		},
		Amount: 10_000_000,
	})
	require.NoError(t, err)

	quote, err := l.queriesAt(sub.Contract.MaturityDate).ComputeSettlement(ctx, cqrs.ComputeSettlementQuery{AccountID: sub.Account.ID, UserID: 1})
	require.NoError(t, err)

	assert.True(t, quote.IsMatured)
	assert.True(t, quote.AppliedRate.Equal(decimal.RequireFromString("2.4")))
	assert.Equal(t, int64(240_000), quote.Interest)
	assert.Equal(t, int64(0), quote.CheckingBalance)
}

func TestComputeSettlementIsRepeatable(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.openChecking(t, 1, 1_000_000)
	sub, err := l.commands.SubscribeDeposit(ctx, cqrs.SubscribeDepositCommand{
		UserID: 1, ProductCode: "DEP-6",
		Option: models.ContractOption{InterestRateType: models.RateTypeCompound, AnnualRate2: decimal.RequireFromString("3.1"), TermMonths: 6},
		Amount: 1_000_000,
	})
	require.NoError(t, err)
	queries := l.queriesAt(opened.AddDate(0, 2, 3))

	first, err := queries.ComputeSettlement(ctx, cqrs.ComputeSettlementQuery{AccountID: sub.Account.ID, UserID: 1})
	require.NoError(t, err)
	second, err := queries.ComputeSettlement(ctx, cqrs.ComputeSettlementQuery{AccountID: sub.Account.ID, UserID: 1})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	account, err := l.store.GetAccount(ctx, sub.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), account.CurrentBalance)
}

func TestComputeSettlementRejections(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	checking := l.openChecking(t, 1, 1000)
	l.openChecking(t, 2, 0)
	sub, err := l.commands.SubscribeSaving(ctx, cqrs.SubscribeSavingCommand{
		UserID: 1, ProductCode: "SAV",
		Option:         models.ContractOption{InterestRateType: models.RateTypeSimple, AnnualRate2: decimal.RequireFromString("3.0"), TermMonths: 12},
		MonthlyPayment: 100,
	})
	require.NoError(t, err)
	queries := l.queriesAt(opened)

	tests := []struct {
		name  string
		query cqrs.ComputeSettlementQuery
		want  error
	}{
		{"other user", cqrs.ComputeSettlementQuery{AccountID: sub.Account.ID, UserID: 2}, ledgererr.ErrNotOwner},
		{"checking account", cqrs.ComputeSettlementQuery{AccountID: checking.ID, UserID: 1}, ledgererr.ErrWrongAccountType},
		{"missing account", cqrs.ComputeSettlementQuery{AccountID: 404, UserID: 1}, ledgererr.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := queries.ComputeSettlement(ctx, tt.query)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetAccountEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	checking := l.openChecking(t, 1, 50)
	queries := l.queriesAt(opened)

	view, err := queries.GetAccount(ctx, cqrs.GetAccountQuery{AccountID: checking.ID, RequestingUserID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(50), view.CurrentBalance)

	_, err = queries.GetAccount(ctx, cqrs.GetAccountQuery{AccountID: checking.ID, RequestingUserID: 2})
	assert.ErrorIs(t, err, ledgererr.ErrNotOwner)
}

func TestListTransactionsShowsDirection(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	checking := l.openChecking(t, 1, 1000)
	sub, err := l.commands.SubscribeDeposit(ctx, cqrs.SubscribeDepositCommand{
		UserID: 1, ProductCode: "DEP",
		Option: models.ContractOption{InterestRateType: models.RateTypeSimple, AnnualRate2: decimal.RequireFromString("2.0"), TermMonths: 3},
		Amount: 400,
	})
	require.NoError(t, err)
	queries := l.queriesAt(opened)

	views, err := queries.ListTransactions(ctx, cqrs.ListTransactionsQuery{AccountID: checking.ID, UserID: 1})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "out", views[0].Direction)
	assert.Equal(t, int64(600), views[0].Balance)
	assert.Equal(t, "in", views[1].Direction)
	assert.Equal(t, int64(1000), views[1].Balance)

	views, err = queries.ListTransactions(ctx, cqrs.ListTransactionsQuery{AccountID: sub.Account.ID, UserID: 1})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "in", views[0].Direction)
	assert.Equal(t, int64(400), views[0].Balance)

	_, err = queries.ListTransactions(ctx, cqrs.ListTransactionsQuery{AccountID: sub.Account.ID, UserID: 9})
	assert.ErrorIs(t, err, ledgererr.ErrNotOwner)
}

func TestListAccounts(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	l.openChecking(t, 1, 0)
	l.openChecking(t, 2, 0)

	views, err := l.queriesAt(opened).ListAccounts(ctx, cqrs.ListAccountsQuery{UserID: 1})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.AccountTypeChecking, views[0].AccountType)
}
