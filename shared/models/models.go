package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking AccountType = "CHECKING"
	AccountTypeDeposit  AccountType = "DEPOSIT"
	AccountTypeSaving   AccountType = "SAVING"
)

// IsProduct reports whether the account type is bound to a contract.
func (t AccountType) IsProduct() bool {
	return t == AccountTypeDeposit || t == AccountTypeSaving
}

type AccountState string

const (
	AccountStateActive      AccountState = "ACTIVE"
	AccountStateEarlyClosed AccountState = "EARLY_CLOSED"
	AccountStateExpired     AccountState = "EXPIRED"
)

// IsTerminal reports whether no further pay-in or refund is allowed.
func (s AccountState) IsTerminal() bool {
	return s == AccountStateEarlyClosed || s == AccountStateExpired
}

type RateType string

const (
	RateTypeSimple   RateType = "SIMPLE"
	RateTypeCompound RateType = "COMPOUND"
)

type ContractCondition string

const (
	ContractInProgress ContractCondition = "IN_PROGRESS"
	ContractCompleted  ContractCondition = "COMPLETED"
)

type TransactionType string

const (
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTransfer   TransactionType = "TRANSFER"
	TransactionPayment    TransactionType = "PAYMENT"
)

// Account is the write model of a single opened account. Balances are in
// minor currency units.
type Account struct {
	ID                  int64        `json:"id"`
	UserID              int64        `json:"userId"`
	CompanyCode         string       `json:"companyCode"`
	AccountType         AccountType  `json:"accountType"`
	CurrentBalance      int64        `json:"currentBalance"`
	AccountState        AccountState `json:"accountState"`
	MaturityDate        time.Time    `json:"maturityDate"`
	LastTransactionDate time.Time    `json:"lastTransactionDate"`
	CreatedAt           time.Time    `json:"createdTimestamp"`
}

// ContractOption is the product option a contract was subscribed under.
// AnnualRate2 is the applied (preferential) rate used for settlement.
type ContractOption struct {
	InterestRateType RateType        `json:"interestRateType"`
	AnnualRate       decimal.Decimal `json:"annualRate"`
	AnnualRate2      decimal.Decimal `json:"annualRate2"`
	TermMonths       int             `json:"termMonths"`
}

// Contract binds a DEPOSIT or SAVING account to a product offering.
// Principal is set for deposits; the payment schedule fields for savings.
type Contract struct {
	ContractID          int64             `json:"contractId"`
	Kind                AccountType       `json:"contractType"`
	UserID              int64             `json:"userId"`
	ProductCode         string            `json:"productCode"`
	Option              ContractOption    `json:"option"`
	ContractDate        time.Time         `json:"contractDate"`
	MaturityDate        time.Time         `json:"maturityDate"`
	ContractCondition   ContractCondition `json:"contractCondition"`
	AccountID           int64             `json:"accountId"`
	Principal           int64             `json:"principal,omitempty"`
	MonthlyPayment      int64             `json:"monthlyPayment,omitempty"`
	CurrentPaymentCount int               `json:"currentPaymentCount"`
	LatestPaymentDate   *time.Time        `json:"latestPaymentDate,omitempty"`
}

// Transaction is one append-only ledger row. A nil FromAccountID means an
// external source, a nil ToAccountID an external sink.
//
// PostBalance is the balance of the account of record: the destination
// account when there is one, the source account otherwise. Both legs are
// also recorded individually.
type Transaction struct {
	ID              int64           `json:"id"`
	TransactionType TransactionType `json:"transactionType"`
	Amount          int64           `json:"amount"`
	FromAccountID   *int64          `json:"fromAccountId"`
	ToAccountID     *int64          `json:"toAccountId"`
	CreatedAt       time.Time       `json:"createdTimestamp"`
	PostBalance     int64           `json:"postBalance"`
	FromPostBalance *int64          `json:"fromPostBalance,omitempty"`
	ToPostBalance   *int64          `json:"toPostBalance,omitempty"`
}

// InstallmentAccrual is the interest earned by a single saving installment.
type InstallmentAccrual struct {
	Number      int       `json:"number"`
	PaymentDate time.Time `json:"paymentDate"`
	DaysHeld    int       `json:"daysHeld"`
	Interest    int64     `json:"interest"`
}

// SettlementQuote is the maturity or early-termination payout for a
// product account as of SettlementDate.
type SettlementQuote struct {
	AccountID       int64                `json:"accountId"`
	ContractID      int64                `json:"contractId"`
	AccountType     AccountType          `json:"accountType"`
	ProductCode     string               `json:"productCode"`
	RateType        RateType             `json:"interestRateType"`
	ContractRate    decimal.Decimal      `json:"contractRate"`
	AppliedRate     decimal.Decimal      `json:"appliedRate"`
	IsMatured       bool                 `json:"isMatured"`
	ContractDate    time.Time            `json:"contractDate"`
	MaturityDate    time.Time            `json:"maturityDate"`
	SettlementDate  time.Time            `json:"settlementDate"`
	HoldingDays     int                  `json:"holdingDays"`
	TermMonths      int                  `json:"termMonths"`
	MonthlyPayment  int64                `json:"monthlyPayment,omitempty"`
	PaymentCount    int                  `json:"paymentCount,omitempty"`
	Installments    []InstallmentAccrual `json:"installments,omitempty"`
	Principal       int64                `json:"totalPrincipal"`
	Interest        int64                `json:"totalInterest"`
	Payout          int64                `json:"totalPayout"`
	CheckingBalance int64                `json:"currentCheckingBalance"`
}

// Posting is the committed outcome of one money movement. Transaction is nil
// only when nothing moved, as when a saving account is opened empty.
type Posting struct {
	Transaction *Transaction `json:"transaction,omitempty"`
	Accounts    []Account    `json:"accounts"`
}

// Subscription is a newly opened product account with its contract.
type Subscription struct {
	Account     Account      `json:"account"`
	Contract    Contract     `json:"contract"`
	Transaction *Transaction `json:"transaction,omitempty"`
}
