package query

import (
	"context"
	"fmt"
	"log"

	"github.com/everybank/ledger-service/shared/events"
)

// AccountProjector keeps cached account views in step with the ledger by
// reloading every account an event touched. Reloading from the store makes
// redelivered events harmless.
type AccountProjector struct {
	views AccountViews
}

func NewAccountProjector(views AccountViews) *AccountProjector {
	return &AccountProjector{views: views}
}

// HandleLedgerEvent is an events.Handler.
func (p *AccountProjector) HandleLedgerEvent(ctx context.Context, event events.Event) error {
	ids, err := touchedAccounts(event)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := p.views.Refresh(ctx, id); err != nil {
			return fmt.Errorf("failed to refresh account %d after %s: %w", id, event.Type, err)
		}
	}
	if len(ids) > 0 {
		log.Printf("Projected %s event %s onto accounts %v", event.Type, event.ID, ids)
	}
	return nil
}

func touchedAccounts(event events.Event) ([]int64, error) {
	switch event.Type {
	case events.TransactionPosted:
		var data events.TransactionPostedEvent
		if err := event.Decode(&data); err != nil {
			return nil, err
		}
		return data.AccountIDs(), nil
	case events.AccountOpened:
		var data events.AccountOpenedEvent
		if err := event.Decode(&data); err != nil {
			return nil, err
		}
		return []int64{data.AccountID}, nil
	case events.AccountClosed:
		var data events.AccountClosedEvent
		if err := event.Decode(&data); err != nil {
			return nil, err
		}
		return []int64{data.AccountID}, nil
	case events.ContractMatured:
		var data events.ContractMaturedEvent
		if err := event.Decode(&data); err != nil {
			return nil, err
		}
		return []int64{data.AccountID}, nil
	}
	return nil, nil
}
