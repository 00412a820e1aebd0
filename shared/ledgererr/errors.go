// Package ledgererr defines the typed failures surfaced by ledger operations.
// Every failure carries a stable Code and a message naming the violated
// precondition; errors.Is matches on the code alone.
package ledgererr

import "fmt"

type Code string

const (
	CodeInvalidAmount           Code = "INVALID_AMOUNT"
	CodeInsufficientFunds       Code = "INSUFFICIENT_FUNDS"
	CodeAccountNotFound         Code = "ACCOUNT_NOT_FOUND"
	CodeContractNotFound        Code = "CONTRACT_NOT_FOUND"
	CodeNotOwner                Code = "NOT_OWNER"
	CodeWrongAccountType        Code = "WRONG_ACCOUNT_TYPE"
	CodeInactiveAccount         Code = "INACTIVE_ACCOUNT"
	CodeNoActiveCheckingAccount Code = "NO_ACTIVE_CHECKING_ACCOUNT"
	CodeCheckingAccountExists   Code = "CHECKING_ACCOUNT_EXISTS"
	CodeAlreadyFunded           Code = "ALREADY_FUNDED"
	CodePaymentsComplete        Code = "PAYMENTS_COMPLETE"
	CodeInvalidContractOption   Code = "INVALID_CONTRACT_OPTION"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidAmount           = &Error{Code: CodeInvalidAmount, Message: "amount must be greater than zero"}
	ErrInsufficientFunds       = &Error{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrAccountNotFound         = &Error{Code: CodeAccountNotFound, Message: "account not found"}
	ErrContractNotFound        = &Error{Code: CodeContractNotFound, Message: "contract not found"}
	ErrNotOwner                = &Error{Code: CodeNotOwner, Message: "forbidden"}
	ErrWrongAccountType        = &Error{Code: CodeWrongAccountType, Message: "wrong account type"}
	ErrInactiveAccount         = &Error{Code: CodeInactiveAccount, Message: "account is not active"}
	ErrNoActiveCheckingAccount = &Error{Code: CodeNoActiveCheckingAccount, Message: "no active checking account"}
	ErrCheckingAccountExists   = &Error{Code: CodeCheckingAccountExists, Message: "active checking account already exists"}
	ErrAlreadyFunded           = &Error{Code: CodeAlreadyFunded, Message: "account already funded"}
	ErrPaymentsComplete        = &Error{Code: CodePaymentsComplete, Message: "all installments already paid"}
	ErrInvalidContractOption   = &Error{Code: CodeInvalidContractOption, Message: "invalid contract option"}
)

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func InvalidAmount(amount int64) *Error {
	return newf(CodeInvalidAmount, "amount must be greater than zero, got %d", amount)
}

// InvalidAmountf reports an amount that is positive but wrong for the
// operation, such as a principal mismatch.
func InvalidAmountf(format string, args ...any) *Error {
	return newf(CodeInvalidAmount, format, args...)
}

// BalanceOverflow reports a credit that would exceed the largest
// representable balance.
func BalanceOverflow(accountID, balance, amount int64) *Error {
	return newf(CodeInvalidAmount, "crediting %d to account %d would overflow its balance of %d", amount, accountID, balance)
}

func InsufficientFunds(accountID, balance, requested int64) *Error {
	return newf(CodeInsufficientFunds, "insufficient funds in account %d: balance %d, requested %d", accountID, balance, requested)
}

func AccountNotFound(accountID int64) *Error {
	return newf(CodeAccountNotFound, "account %d not found", accountID)
}

func ContractNotFound(accountID int64) *Error {
	return newf(CodeContractNotFound, "no contract bound to account %d", accountID)
}

func NotOwner(accountID, userID int64) *Error {
	return newf(CodeNotOwner, "account %d does not belong to user %d", accountID, userID)
}

func WrongAccountType(accountID int64, got string, op string) *Error {
	return newf(CodeWrongAccountType, "%s not permitted on %s account %d", op, got, accountID)
}

func InactiveAccount(accountID int64, state string) *Error {
	return newf(CodeInactiveAccount, "account %d is %s", accountID, state)
}

func NoActiveCheckingAccount(userID int64) *Error {
	return newf(CodeNoActiveCheckingAccount, "user %d has no active checking account", userID)
}

func CheckingAccountExists(userID, accountID int64) *Error {
	return newf(CodeCheckingAccountExists, "user %d already has active checking account %d", userID, accountID)
}

// DuplicateCheckingAccount is returned when the store, not the caller,
// detects the second active checking account and the first one's id is
// not at hand.
func DuplicateCheckingAccount(userID int64) *Error {
	return newf(CodeCheckingAccountExists, "user %d already has an active checking account", userID)
}

func AlreadyFunded(accountID, balance int64) *Error {
	return newf(CodeAlreadyFunded, "account %d already holds %d", accountID, balance)
}

func PaymentsComplete(accountID int64, count, term int) *Error {
	return newf(CodePaymentsComplete, "account %d has %d of %d installments paid", accountID, count, term)
}

func InvalidContractOption(reason string) *Error {
	return newf(CodeInvalidContractOption, "invalid contract option: %s", reason)
}
