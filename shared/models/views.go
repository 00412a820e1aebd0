package models

import "time"

// AccountView is the read-optimised projection of an account.
// UserID is populated for ownership checks but never serialised to the API response.
type AccountView struct {
	ID                  int64        `json:"id"`
	UserID              int64        `json:"-"`
	CompanyCode         string       `json:"companyCode"`
	AccountType         AccountType  `json:"accountType"`
	CurrentBalance      int64        `json:"currentBalance"`
	AccountState        AccountState `json:"accountState"`
	MaturityDate        time.Time    `json:"maturityDate"`
	LastTransactionDate time.Time    `json:"lastTransactionDate"`
	PaymentCount        *int         `json:"paymentCount,omitempty"`
}

// TransactionView is the read-optimised projection of a ledger row, seen
// from one account. Direction is "in" or "out" relative to that account.
type TransactionView struct {
	ID              int64           `json:"id"`
	TransactionType TransactionType `json:"transactionType"`
	Amount          int64           `json:"amount"`
	Direction       string          `json:"direction"`
	FromAccountID   *int64          `json:"fromAccountId"`
	ToAccountID     *int64          `json:"toAccountId"`
	Balance         int64           `json:"balance"`
	CreatedAt       time.Time       `json:"createdTimestamp"`
}

// AccountToView converts the write model to its read projection.
func AccountToView(a *Account) *AccountView {
	return &AccountView{
		ID:                  a.ID,
		UserID:              a.UserID,
		CompanyCode:         a.CompanyCode,
		AccountType:         a.AccountType,
		CurrentBalance:      a.CurrentBalance,
		AccountState:        a.AccountState,
		MaturityDate:        a.MaturityDate,
		LastTransactionDate: a.LastTransactionDate,
	}
}

// TransactionToView projects a ledger row onto accountID. The balance shown
// is the post balance of accountID's own leg.
func TransactionToView(t *Transaction, accountID int64) TransactionView {
	view := TransactionView{
		ID:              t.ID,
		TransactionType: t.TransactionType,
		Amount:          t.Amount,
		FromAccountID:   t.FromAccountID,
		ToAccountID:     t.ToAccountID,
		Balance:         t.PostBalance,
		CreatedAt:       t.CreatedAt,
	}
	switch {
	case t.ToAccountID != nil && *t.ToAccountID == accountID:
		view.Direction = "in"
		if t.ToPostBalance != nil {
			view.Balance = *t.ToPostBalance
		}
	case t.FromAccountID != nil && *t.FromAccountID == accountID:
		view.Direction = "out"
		if t.FromPostBalance != nil {
			view.Balance = *t.FromPostBalance
		}
	}
	return view
}
