package cqrs

import "github.com/everybank/ledger-service/shared/models"

type OpenCheckingAccountCommand struct {
	UserID      int64
	CompanyCode string
}

type ExternalDepositCommand struct {
	UserID int64
	Amount int64
}

type ExternalWithdrawCommand struct {
	UserID int64
	Amount int64
}

type PayIntoProductCommand struct {
	UserID           int64
	ProductAccountID int64
	Amount           int64
}

type RefundFromProductCommand struct {
	UserID           int64
	ProductAccountID int64
}

type FundNewContractAccountCommand struct {
	UserID           int64
	ProductAccountID int64
	Amount           int64
}

// SubscribeDepositCommand opens a deposit funded with Amount from the
// user's checking account.
type SubscribeDepositCommand struct {
	UserID      int64
	ProductCode string
	CompanyCode string
	Option      models.ContractOption
	Amount      int64
}

// SubscribeSavingCommand opens an empty saving with a fixed monthly payment.
type SubscribeSavingCommand struct {
	UserID         int64
	ProductCode    string
	CompanyCode    string
	Option         models.ContractOption
	MonthlyPayment int64
}
