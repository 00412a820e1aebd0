package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/everybank/ledger-service/shared/ledgererr"
	"github.com/everybank/ledger-service/shared/models"
	"github.com/everybank/ledger-service/shared/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

func seedChecking(t *testing.T, s Store, userID, balance int64) int64 {
	t.Helper()
	var id int64
	err := s.WithinTx(context.Background(), func(tx Tx) error {
		a := &models.Account{
			UserID:              userID,
			CompanyCode:         "EVB",
			AccountType:         models.AccountTypeChecking,
			CurrentBalance:      balance,
			AccountState:        models.AccountStateActive,
			LastTransactionDate: now,
			CreatedAt:           now,
		}
		if err := tx.CreateAccount(context.Background(), a); err != nil {
			return err
		}
		id = a.ID
		return nil
	})
	require.NoError(t, err)
	return id
}

func TestMemoryStoreRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedChecking(t, s, 1, 100)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Tx) error {
		locked, err := tx.LockAccounts(ctx, id)
		if err != nil {
			return err
		}
		a := locked[id]
		a.CurrentBalance = 0
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		from := id
		if err := tx.AppendTransaction(ctx, &models.Transaction{
			TransactionType: models.TransactionWithdrawal,
			Amount:          100,
			FromAccountID:   &from,
			CreatedAt:       now,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	account, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), account.CurrentBalance)

	txs, err := s.ListTransactionsByAccount(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestMemoryStoreLockUnknownAccount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.LockAccounts(ctx, 99)
		return err
	})
	assert.ErrorIs(t, err, ledgererr.ErrAccountNotFound)
}

func TestMemoryStoreSingleActiveChecking(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedChecking(t, s, 1, 0)

	err := s.WithinTx(ctx, func(tx Tx) error {
		return tx.CreateAccount(ctx, &models.Account{
			UserID:       1,
			AccountType:  models.AccountTypeChecking,
			AccountState: models.AccountStateActive,
		})
	})
	assert.ErrorIs(t, err, ledgererr.ErrCheckingAccountExists)

	accounts, err := s.ListAccountsByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestMemoryStoreSerializesLockedUnitsOfWork(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedChecking(t, s, 1, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinTx(ctx, func(tx Tx) error {
				locked, err := tx.LockAccounts(ctx, id)
				if err != nil {
					return err
				}
				a := locked[id]
				a.CurrentBalance++
				return tx.UpdateAccount(ctx, a)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	account, err := s.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(50), account.CurrentBalance)
}

func TestMemoryStoreContractsAndMaturity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	contractDate := utils.Date(2024, time.January, 10)

	var accountID int64
	err := s.WithinTx(ctx, func(tx Tx) error {
		a := &models.Account{
			UserID:       1,
			AccountType:  models.AccountTypeDeposit,
			AccountState: models.AccountStateActive,
			MaturityDate: utils.AddMonths(contractDate, 12),
		}
		if err := tx.CreateAccount(ctx, a); err != nil {
			return err
		}
		accountID = a.ID
		if _, err := tx.LockAccounts(ctx, a.ID); err != nil {
			return err
		}
		return tx.CreateContract(ctx, &models.Contract{
			Kind:              models.AccountTypeDeposit,
			UserID:            1,
			ContractDate:      contractDate,
			MaturityDate:      a.MaturityDate,
			ContractCondition: models.ContractInProgress,
			AccountID:         a.ID,
			Principal:         1000,
		})
	})
	require.NoError(t, err)

	contract, err := s.GetContractByAccountID(ctx, accountID)
	require.NoError(t, err)
	assert.NotZero(t, contract.ContractID)

	matured, err := s.ListMaturedContracts(ctx, utils.Date(2025, time.January, 9))
	require.NoError(t, err)
	assert.Empty(t, matured)

	matured, err = s.ListMaturedContracts(ctx, utils.Date(2025, time.January, 10))
	require.NoError(t, err)
	require.Len(t, matured, 1)
	assert.Equal(t, accountID, matured[0].AccountID)

	_, err = s.GetContractByAccountID(ctx, accountID+1)
	assert.ErrorIs(t, err, ledgererr.ErrContractNotFound)
}

func TestMemoryStoreTransactionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id := seedChecking(t, s, 1, 0)
	other := seedChecking(t, s, 2, 0)

	for _, amount := range []int64{10, 20, 30} {
		to := id
		require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
			return tx.AppendTransaction(ctx, &models.Transaction{
				TransactionType: models.TransactionDeposit,
				Amount:          amount,
				ToAccountID:     &to,
				CreatedAt:       now,
			})
		}))
	}

	txs, err := s.ListTransactionsByAccount(ctx, id)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, int64(30), txs[0].Amount)
	assert.Equal(t, int64(10), txs[2].Amount)

	txs, err = s.ListTransactionsByAccount(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
