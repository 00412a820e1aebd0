package query

import (
	"context"
	"testing"

	"github.com/everybank/ledger-service/internal/repository"
	"github.com/everybank/ledger-service/shared/events"
	"github.com/everybank/ledger-service/shared/ledgererr"
	"github.com/everybank/ledger-service/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAccounts(t *testing.T, store *repository.MemoryStore, n int) []int64 {
	t.Helper()
	ctx := context.Background()
	var ids []int64
	require.NoError(t, store.WithinTx(ctx, func(tx repository.Tx) error {
		for i := 0; i < n; i++ {
			a := &models.Account{UserID: int64(i + 1), AccountType: models.AccountTypeChecking, AccountState: models.AccountStateActive}
			if err := tx.CreateAccount(ctx, a); err != nil {
				return err
			}
			ids = append(ids, a.ID)
		}
		return nil
	}))
	return ids
}

func TestProjectorRefreshesBothLegs(t *testing.T) {
	store := repository.NewMemoryStore()
	ids := seedAccounts(t, store, 2)
	views := &storeViews{store: store}
	projector := NewAccountProjector(views)

	event, err := events.NewEvent(events.TransactionPosted, events.TransactionPostedEvent{
		TransactionID: 1, FromAccountID: &ids[0], ToAccountID: &ids[1], Amount: 10,
	})
	require.NoError(t, err)

	require.NoError(t, projector.HandleLedgerEvent(context.Background(), event))
	assert.Equal(t, ids, views.refreshed)
}

func TestProjectorHandlesLifecycleEvents(t *testing.T) {
	store := repository.NewMemoryStore()
	ids := seedAccounts(t, store, 1)

	tests := []struct {
		eventType string
		data      any
	}{
		{events.AccountOpened, events.AccountOpenedEvent{AccountID: ids[0]}},
		{events.AccountClosed, events.AccountClosedEvent{AccountID: ids[0]}},
		{events.ContractMatured, events.ContractMaturedEvent{AccountID: ids[0]}},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			views := &storeViews{store: store}
			event, err := events.NewEvent(tt.eventType, tt.data)
			require.NoError(t, err)

			require.NoError(t, NewAccountProjector(views).HandleLedgerEvent(context.Background(), event))
			assert.Equal(t, []int64{ids[0]}, views.refreshed)
		})
	}
}

func TestProjectorIgnoresUnknownEvents(t *testing.T) {
	views := &storeViews{store: repository.NewMemoryStore()}
	event, err := events.NewEvent("user.created", map[string]string{"userId": "1"})
	require.NoError(t, err)

	require.NoError(t, NewAccountProjector(views).HandleLedgerEvent(context.Background(), event))
	assert.Empty(t, views.refreshed)
}

func TestProjectorReturnsRefreshFailure(t *testing.T) {
	views := &storeViews{store: repository.NewMemoryStore()}
	event, err := events.NewEvent(events.AccountOpened, events.AccountOpenedEvent{AccountID: 77})
	require.NoError(t, err)

	err = NewAccountProjector(views).HandleLedgerEvent(context.Background(), event)
	assert.ErrorIs(t, err, ledgererr.ErrAccountNotFound)
}

func TestProjectorFlagsUndecodablePayload(t *testing.T) {
	views := &storeViews{store: repository.NewMemoryStore()}
	event := events.Event{ID: "e-1", Type: events.TransactionPosted, Data: []byte(`"not an object"`)}

	err := NewAccountProjector(views).HandleLedgerEvent(context.Background(), event)
	assert.ErrorIs(t, err, events.ErrMalformedMessage)
	assert.Empty(t, views.refreshed)
}
