package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/everybank/ledger-service/internal/repository"
	"github.com/everybank/ledger-service/shared/cqrs"
	"github.com/everybank/ledger-service/shared/events"
	"github.com/everybank/ledger-service/shared/ledgererr"
	"github.com/everybank/ledger-service/shared/models"
	"github.com/everybank/ledger-service/shared/utils"
)

// EventPublisher is satisfied by *events.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// LedgerCommandService is the only writer of balances. Every operation runs
// in one unit of work that locks the accounts it touches and pairs each
// balance change with exactly one ledger row; events are published only
// after commit.
type LedgerCommandService struct {
	store     repository.Store
	publisher EventPublisher
	stream    string
	clock     utils.Clock
}

func NewLedgerCommandService(store repository.Store, publisher EventPublisher, stream string, clock utils.Clock) *LedgerCommandService {
	if stream == "" {
		stream = events.LedgerEventsStream
	}
	return &LedgerCommandService{
		store:     store,
		publisher: publisher,
		stream:    stream,
		clock:     clock,
	}
}

func (s *LedgerCommandService) OpenCheckingAccount(ctx context.Context, cmd cqrs.OpenCheckingAccountCommand) (*models.Account, error) {
	now := s.clock.Now()
	account := &models.Account{
		UserID:              cmd.UserID,
		CompanyCode:         cmd.CompanyCode,
		AccountType:         models.AccountTypeChecking,
		AccountState:        models.AccountStateActive,
		LastTransactionDate: now,
		CreatedAt:           now,
	}

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		existing, err := tx.FindActiveCheckingAccountID(ctx, cmd.UserID)
		if err == nil {
			return ledgererr.CheckingAccountExists(cmd.UserID, existing)
		}
		if !errors.Is(err, ledgererr.ErrNoActiveCheckingAccount) {
			return err
		}
		return tx.CreateAccount(ctx, account)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.AccountOpened, events.AccountOpenedEvent{
		AccountID:   account.ID,
		UserID:      account.UserID,
		AccountType: string(account.AccountType),
	})
	log.Printf("Checking account %d opened for user %d", account.ID, account.UserID)
	return account, nil
}

func (s *LedgerCommandService) ExternalDeposit(ctx context.Context, cmd cqrs.ExternalDepositCommand) (*models.Posting, error) {
	if cmd.Amount <= 0 {
		return nil, ledgererr.InvalidAmount(cmd.Amount)
	}
	now := s.clock.Now()

	var posting *models.Posting
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		checking, err := lockChecking(ctx, tx, cmd.UserID)
		if err != nil {
			return err
		}
		if cmd.Amount > math.MaxInt64-checking.CurrentBalance {
			return ledgererr.BalanceOverflow(checking.ID, checking.CurrentBalance, cmd.Amount)
		}
		checking.CurrentBalance += cmd.Amount
		checking.LastTransactionDate = now
		if err := tx.UpdateAccount(ctx, checking); err != nil {
			return err
		}

		transaction := newTransaction(models.TransactionDeposit, cmd.Amount, nil, checking, now)
		if err := tx.AppendTransaction(ctx, transaction); err != nil {
			return err
		}
		posting = &models.Posting{Transaction: transaction, Accounts: []models.Account{*checking}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPosting(ctx, cmd.UserID, posting.Transaction)
	return posting, nil
}

func (s *LedgerCommandService) ExternalWithdraw(ctx context.Context, cmd cqrs.ExternalWithdrawCommand) (*models.Posting, error) {
	if cmd.Amount <= 0 {
		return nil, ledgererr.InvalidAmount(cmd.Amount)
	}
	now := s.clock.Now()

	var posting *models.Posting
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		checking, err := lockChecking(ctx, tx, cmd.UserID)
		if err != nil {
			return err
		}
		if checking.CurrentBalance < cmd.Amount {
			return ledgererr.InsufficientFunds(checking.ID, checking.CurrentBalance, cmd.Amount)
		}
		checking.CurrentBalance -= cmd.Amount
		checking.LastTransactionDate = now
		if err := tx.UpdateAccount(ctx, checking); err != nil {
			return err
		}

		transaction := newTransaction(models.TransactionWithdrawal, cmd.Amount, checking, nil, now)
		if err := tx.AppendTransaction(ctx, transaction); err != nil {
			return err
		}
		posting = &models.Posting{Transaction: transaction, Accounts: []models.Account{*checking}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPosting(ctx, cmd.UserID, posting.Transaction)
	return posting, nil
}

// PayIntoProduct moves money from checking into an ACTIVE saving account and
// counts it as the next installment. Deposits take no pay-ins after funding.
func (s *LedgerCommandService) PayIntoProduct(ctx context.Context, cmd cqrs.PayIntoProductCommand) (*models.Posting, error) {
	if cmd.Amount <= 0 {
		return nil, ledgererr.InvalidAmount(cmd.Amount)
	}
	now := s.clock.Now()
	today := utils.DateOf(now)

	var posting *models.Posting
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		checking, product, err := lockCheckingAndProduct(ctx, tx, cmd.UserID, cmd.ProductAccountID)
		if err != nil {
			return err
		}
		if err := checkProduct(product, cmd.UserID, "pay-in"); err != nil {
			return err
		}
		if product.AccountState != models.AccountStateActive {
			return ledgererr.InactiveAccount(product.ID, string(product.AccountState))
		}
		if product.AccountType == models.AccountTypeDeposit {
			return ledgererr.WrongAccountType(product.ID, string(product.AccountType), "pay-in")
		}

		contract, err := tx.GetContractByAccountID(ctx, product.ID)
		if err != nil {
			return err
		}
		if contract.CurrentPaymentCount >= contract.Option.TermMonths {
			return ledgererr.PaymentsComplete(product.ID, contract.CurrentPaymentCount, contract.Option.TermMonths)
		}
		if checking.CurrentBalance < cmd.Amount {
			return ledgererr.InsufficientFunds(checking.ID, checking.CurrentBalance, cmd.Amount)
		}

		transaction, err := move(ctx, tx, models.TransactionPayment, cmd.Amount, checking, product, now)
		if err != nil {
			return err
		}

		contract.CurrentPaymentCount++
		contract.LatestPaymentDate = &today
		if err := tx.UpdateContract(ctx, contract); err != nil {
			return err
		}
		posting = &models.Posting{Transaction: transaction, Accounts: []models.Account{*checking, *product}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPosting(ctx, cmd.UserID, posting.Transaction)
	return posting, nil
}

// RefundFromProduct empties a product account into checking and closes it:
// EARLY_CLOSED before the maturity date, EXPIRED on or after it.
func (s *LedgerCommandService) RefundFromProduct(ctx context.Context, cmd cqrs.RefundFromProductCommand) (*models.Posting, error) {
	now := s.clock.Now()
	today := utils.DateOf(now)

	var posting *models.Posting
	var refundAmount int64
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		checking, product, err := lockCheckingAndProduct(ctx, tx, cmd.UserID, cmd.ProductAccountID)
		if err != nil {
			return err
		}
		if err := checkProduct(product, cmd.UserID, "refund"); err != nil {
			return err
		}
		if product.AccountState.IsTerminal() {
			return ledgererr.InactiveAccount(product.ID, string(product.AccountState))
		}
		refundAmount = product.CurrentBalance
		if refundAmount <= 0 {
			return ledgererr.InvalidAmount(refundAmount)
		}

		contract, err := tx.GetContractByAccountID(ctx, product.ID)
		if err != nil {
			return err
		}

		if today.Before(product.MaturityDate) {
			product.AccountState = models.AccountStateEarlyClosed
		} else {
			product.AccountState = models.AccountStateExpired
		}
		transaction, err := move(ctx, tx, models.TransactionTransfer, refundAmount, product, checking, now)
		if err != nil {
			return err
		}

		contract.ContractCondition = models.ContractCompleted
		if err := tx.UpdateContract(ctx, contract); err != nil {
			return err
		}
		posting = &models.Posting{Transaction: transaction, Accounts: []models.Account{*checking, *product}}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPosting(ctx, cmd.UserID, posting.Transaction)
	closed := posting.Accounts[1]
	s.publish(ctx, events.AccountClosed, events.AccountClosedEvent{
		AccountID:    closed.ID,
		UserID:       cmd.UserID,
		AccountState: string(closed.AccountState),
		RefundAmount: refundAmount,
	})
	log.Printf("Account %d closed as %s, refunded %d", closed.ID, closed.AccountState, refundAmount)
	return posting, nil
}

func (s *LedgerCommandService) FundNewContractAccount(ctx context.Context, cmd cqrs.FundNewContractAccountCommand) (*models.Posting, error) {
	now := s.clock.Now()

	var posting *models.Posting
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		posting, err = fund(ctx, tx, cmd.UserID, cmd.ProductAccountID, cmd.Amount, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if posting.Transaction != nil {
		s.publishPosting(ctx, cmd.UserID, posting.Transaction)
	}
	return posting, nil
}

// SubscribeDeposit opens a deposit account and contract and funds it with
// the principal from checking, all in one unit of work.
func (s *LedgerCommandService) SubscribeDeposit(ctx context.Context, cmd cqrs.SubscribeDepositCommand) (*models.Subscription, error) {
	if cmd.Amount <= 0 {
		return nil, ledgererr.InvalidAmount(cmd.Amount)
	}
	if err := validateOption(cmd.Option); err != nil {
		return nil, err
	}

	contract := &models.Contract{
		Kind:        models.AccountTypeDeposit,
		UserID:      cmd.UserID,
		ProductCode: cmd.ProductCode,
		Option:      cmd.Option,
		Principal:   cmd.Amount,
	}
	sub, err := s.subscribe(ctx, cmd.CompanyCode, contract, cmd.Amount)
	if err != nil {
		return nil, err
	}
	log.Printf("Deposit %d subscribed by user %d: product=%s principal=%d", sub.Account.ID, cmd.UserID, cmd.ProductCode, cmd.Amount)
	return sub, nil
}

// SubscribeSaving opens an empty saving account and contract. Installments
// arrive later through PayIntoProduct.
func (s *LedgerCommandService) SubscribeSaving(ctx context.Context, cmd cqrs.SubscribeSavingCommand) (*models.Subscription, error) {
	if cmd.MonthlyPayment <= 0 {
		return nil, ledgererr.InvalidAmount(cmd.MonthlyPayment)
	}
	if err := validateOption(cmd.Option); err != nil {
		return nil, err
	}
	// The full term of installments must fit in a balance.
	if cmd.MonthlyPayment > math.MaxInt64/int64(cmd.Option.TermMonths) {
		return nil, ledgererr.InvalidAmountf("monthly payment %d over %d months overflows a balance", cmd.MonthlyPayment, cmd.Option.TermMonths)
	}

	contract := &models.Contract{
		Kind:           models.AccountTypeSaving,
		UserID:         cmd.UserID,
		ProductCode:    cmd.ProductCode,
		Option:         cmd.Option,
		MonthlyPayment: cmd.MonthlyPayment,
	}
	sub, err := s.subscribe(ctx, cmd.CompanyCode, contract, 0)
	if err != nil {
		return nil, err
	}
	log.Printf("Saving %d subscribed by user %d: product=%s monthly=%d", sub.Account.ID, cmd.UserID, cmd.ProductCode, cmd.MonthlyPayment)
	return sub, nil
}

func (s *LedgerCommandService) subscribe(ctx context.Context, companyCode string, contract *models.Contract, amount int64) (*models.Subscription, error) {
	now := s.clock.Now()
	today := utils.DateOf(now)
	maturity := utils.AddMonths(today, contract.Option.TermMonths)

	contract.ContractDate = today
	contract.MaturityDate = maturity
	contract.ContractCondition = models.ContractInProgress

	var sub *models.Subscription
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.FindActiveCheckingAccountID(ctx, contract.UserID); err != nil {
			return err
		}

		account := &models.Account{
			UserID:              contract.UserID,
			CompanyCode:         companyCode,
			AccountType:         contract.Kind,
			AccountState:        models.AccountStateActive,
			MaturityDate:        maturity,
			LastTransactionDate: now,
			CreatedAt:           now,
		}
		if err := tx.CreateAccount(ctx, account); err != nil {
			return err
		}
		contract.AccountID = account.ID
		if err := tx.CreateContract(ctx, contract); err != nil {
			return err
		}

		posting, err := fund(ctx, tx, contract.UserID, account.ID, amount, now)
		if err != nil {
			return err
		}
		sub = &models.Subscription{Contract: *contract, Transaction: posting.Transaction}
		for _, a := range posting.Accounts {
			if a.ID == account.ID {
				sub.Account = a
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.AccountOpened, events.AccountOpenedEvent{
		AccountID:   sub.Account.ID,
		UserID:      sub.Account.UserID,
		AccountType: string(sub.Account.AccountType),
		ContractID:  sub.Contract.ContractID,
	})
	if sub.Transaction != nil {
		s.publishPosting(ctx, contract.UserID, sub.Transaction)
	}
	return sub, nil
}

// MarkMaturedContracts flags IN_PROGRESS contracts whose maturity date has
// arrived as COMPLETED. Account state is left alone; only a refund closes
// an account. Returns how many contracts were flagged.
func (s *LedgerCommandService) MarkMaturedContracts(ctx context.Context) (int, error) {
	today := utils.Today(s.clock)
	contracts, err := s.store.ListMaturedContracts(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list matured contracts: %w", err)
	}

	var errs []error
	marked := 0
	for _, c := range contracts {
		var flagged bool
		err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
			if _, err := tx.LockAccounts(ctx, c.AccountID); err != nil {
				return err
			}
			current, err := tx.GetContractByAccountID(ctx, c.AccountID)
			if err != nil {
				return err
			}
			if current.ContractCondition != models.ContractInProgress || today.Before(current.MaturityDate) {
				return nil
			}
			current.ContractCondition = models.ContractCompleted
			flagged = true
			return tx.UpdateContract(ctx, current)
		})
		if err != nil {
			log.Printf("Failed to mark contract %d as matured: %v", c.ContractID, err)
			errs = append(errs, err)
			continue
		}
		if !flagged {
			continue
		}
		marked++
		s.publish(ctx, events.ContractMatured, events.ContractMaturedEvent{
			ContractID: c.ContractID,
			AccountID:  c.AccountID,
			UserID:     c.UserID,
		})
	}
	return marked, errors.Join(errs...)
}

// fund moves the opening balance into a product account that has just been
// created. A deposit must receive exactly its principal, once; a saving is
// opened empty, so nothing moves and no ledger row is written.
func fund(ctx context.Context, tx repository.Tx, userID, productID, amount int64, now time.Time) (*models.Posting, error) {
	checking, product, err := lockCheckingAndProduct(ctx, tx, userID, productID)
	if err != nil {
		return nil, err
	}
	if err := checkProduct(product, userID, "funding"); err != nil {
		return nil, err
	}
	if product.AccountState.IsTerminal() {
		return nil, ledgererr.InactiveAccount(product.ID, string(product.AccountState))
	}
	contract, err := tx.GetContractByAccountID(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	product.AccountState = models.AccountStateActive

	if product.AccountType == models.AccountTypeSaving {
		if amount != 0 {
			return nil, ledgererr.InvalidAmountf("saving account %d is opened empty, got %d", product.ID, amount)
		}
		product.LastTransactionDate = now
		if err := tx.UpdateAccount(ctx, product); err != nil {
			return nil, err
		}
		return &models.Posting{Accounts: []models.Account{*checking, *product}}, nil
	}

	if amount <= 0 {
		return nil, ledgererr.InvalidAmount(amount)
	}
	if product.CurrentBalance != 0 {
		return nil, ledgererr.AlreadyFunded(product.ID, product.CurrentBalance)
	}
	if amount != contract.Principal {
		return nil, ledgererr.InvalidAmountf("deposit %d principal is %d, got %d", product.ID, contract.Principal, amount)
	}
	if checking.CurrentBalance < amount {
		return nil, ledgererr.InsufficientFunds(checking.ID, checking.CurrentBalance, amount)
	}

	transaction, err := move(ctx, tx, models.TransactionPayment, amount, checking, product, now)
	if err != nil {
		return nil, err
	}
	return &models.Posting{Transaction: transaction, Accounts: []models.Account{*checking, *product}}, nil
}

// move shifts amount between two locked accounts and writes the ledger row.
func move(ctx context.Context, tx repository.Tx, kind models.TransactionType, amount int64, from, to *models.Account, now time.Time) (*models.Transaction, error) {
	if amount > math.MaxInt64-to.CurrentBalance {
		return nil, ledgererr.BalanceOverflow(to.ID, to.CurrentBalance, amount)
	}
	from.CurrentBalance -= amount
	to.CurrentBalance += amount
	from.LastTransactionDate = now
	to.LastTransactionDate = now

	if err := tx.UpdateAccount(ctx, from); err != nil {
		return nil, err
	}
	if err := tx.UpdateAccount(ctx, to); err != nil {
		return nil, err
	}
	transaction := newTransaction(kind, amount, from, to, now)
	if err := tx.AppendTransaction(ctx, transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

// newTransaction builds a ledger row from post-move account state. A nil
// account is the external side.
func newTransaction(kind models.TransactionType, amount int64, from, to *models.Account, now time.Time) *models.Transaction {
	t := &models.Transaction{
		TransactionType: kind,
		Amount:          amount,
		CreatedAt:       now,
	}
	if from != nil {
		id, balance := from.ID, from.CurrentBalance
		t.FromAccountID = &id
		t.FromPostBalance = &balance
		t.PostBalance = balance
	}
	if to != nil {
		id, balance := to.ID, to.CurrentBalance
		t.ToAccountID = &id
		t.ToPostBalance = &balance
		t.PostBalance = balance
	}
	return t
}

func lockChecking(ctx context.Context, tx repository.Tx, userID int64) (*models.Account, error) {
	checkingID, err := tx.FindActiveCheckingAccountID(ctx, userID)
	if err != nil {
		return nil, err
	}
	locked, err := tx.LockAccounts(ctx, checkingID)
	if err != nil {
		return nil, err
	}
	checking := locked[checkingID]
	if checking.AccountState != models.AccountStateActive {
		return nil, ledgererr.NoActiveCheckingAccount(userID)
	}
	return checking, nil
}

func lockCheckingAndProduct(ctx context.Context, tx repository.Tx, userID, productID int64) (*models.Account, *models.Account, error) {
	checkingID, err := tx.FindActiveCheckingAccountID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	locked, err := tx.LockAccounts(ctx, checkingID, productID)
	if err != nil {
		return nil, nil, err
	}
	checking := locked[checkingID]
	if checking.AccountState != models.AccountStateActive {
		return nil, nil, ledgererr.NoActiveCheckingAccount(userID)
	}
	if productID == checkingID {
		return nil, nil, ledgererr.WrongAccountType(productID, string(models.AccountTypeChecking), "product operation")
	}
	return checking, locked[productID], nil
}

func checkProduct(product *models.Account, userID int64, op string) error {
	if product.UserID != userID {
		return ledgererr.NotOwner(product.ID, userID)
	}
	if !product.AccountType.IsProduct() {
		return ledgererr.WrongAccountType(product.ID, string(product.AccountType), op)
	}
	return nil
}

func validateOption(o models.ContractOption) error {
	switch {
	case o.TermMonths <= 0:
		return ledgererr.InvalidContractOption(fmt.Sprintf("term must be positive, got %d months", o.TermMonths))
	case o.InterestRateType != models.RateTypeSimple && o.InterestRateType != models.RateTypeCompound:
		return ledgererr.InvalidContractOption(fmt.Sprintf("unknown rate type %q", o.InterestRateType))
	case o.AnnualRate.IsNegative() || o.AnnualRate2.IsNegative():
		return ledgererr.InvalidContractOption("rates must not be negative")
	}
	return nil
}

func (s *LedgerCommandService) publishPosting(ctx context.Context, userID int64, t *models.Transaction) {
	s.publish(ctx, events.TransactionPosted, events.TransactionPostedEvent{
		TransactionID:   t.ID,
		TransactionType: string(t.TransactionType),
		UserID:          userID,
		Amount:          t.Amount,
		FromAccountID:   t.FromAccountID,
		ToAccountID:     t.ToAccountID,
		PostBalance:     t.PostBalance,
	})
}

// publish never fails the caller: the ledger has already committed.
func (s *LedgerCommandService) publish(ctx context.Context, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.stream, eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
