package cqrs

// GetAccountQuery fetches a single account, subject to ownership check.
type GetAccountQuery struct {
	AccountID        int64
	RequestingUserID int64
}

// ListAccountsQuery fetches all accounts belonging to a user.
type ListAccountsQuery struct {
	UserID int64
}

// ListTransactionsQuery fetches the ledger rows of one account.
type ListTransactionsQuery struct {
	AccountID int64
	UserID    int64
}

// ComputeSettlementQuery prices the payout of a product account as of today.
type ComputeSettlementQuery struct {
	AccountID int64
	UserID    int64
}
