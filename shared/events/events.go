package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	TransactionPosted = "transaction.posted"
	AccountOpened     = "account.opened"
	AccountClosed     = "account.closed"
	ContractMatured   = "contract.matured"
)

// LedgerEventsStream is the default stream every ledger event goes to.
const LedgerEventsStream = "ledger.events"

// Event is the envelope written to the stream. Data holds one of the
// payload types below, selected by Type.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrMalformedMessage, e.Type, err)
	}
	return nil
}

type TransactionPostedEvent struct {
	TransactionID   int64  `json:"transactionId"`
	TransactionType string `json:"transactionType"`
	UserID          int64  `json:"userId"`
	Amount          int64  `json:"amount"`
	FromAccountID   *int64 `json:"fromAccountId"`
	ToAccountID     *int64 `json:"toAccountId"`
	PostBalance     int64  `json:"postBalance"`
}

// AccountIDs lists the accounts the transaction touched.
func (e TransactionPostedEvent) AccountIDs() []int64 {
	var ids []int64
	if e.FromAccountID != nil {
		ids = append(ids, *e.FromAccountID)
	}
	if e.ToAccountID != nil {
		ids = append(ids, *e.ToAccountID)
	}
	return ids
}

type AccountOpenedEvent struct {
	AccountID   int64  `json:"accountId"`
	UserID      int64  `json:"userId"`
	AccountType string `json:"accountType"`
	ContractID  int64  `json:"contractId,omitempty"`
}

type AccountClosedEvent struct {
	AccountID    int64  `json:"accountId"`
	UserID       int64  `json:"userId"`
	AccountState string `json:"accountState"`
	RefundAmount int64  `json:"refundAmount"`
}

type ContractMaturedEvent struct {
	ContractID int64 `json:"contractId"`
	AccountID  int64 `json:"accountId"`
	UserID     int64 `json:"userId"`
}
