package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/everybank/ledger-service/shared/ledgererr"
	"github.com/everybank/ledger-service/shared/models"
)

// MemoryStore keeps the ledger in process. Each account has its own mutex;
// a unit of work takes the mutexes it needs in ascending id order and
// applies its staged writes only on commit.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[int64]*models.Account
	contracts    map[int64]*models.Contract
	transactions []models.Transaction
	rowLocks     map[int64]*sync.Mutex

	nextAccountID     int64
	nextContractID    int64
	nextTransactionID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[int64]*models.Account),
		contracts: make(map[int64]*models.Contract),
		rowLocks:  make(map[int64]*sync.Mutex),
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memoryTx{
		store:     s,
		accounts:  make(map[int64]*models.Account),
		contracts: make(map[int64]*models.Contract),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *MemoryStore) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, ledgererr.AccountNotFound(id)
	}
	copied := *account
	return &copied, nil
}

func (s *MemoryStore) ListAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var accounts []models.Account
	for _, account := range s.accounts {
		if account.UserID == userID {
			accounts = append(accounts, *account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (s *MemoryStore) FindActiveCheckingAccount(ctx context.Context, userID int64) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if isActiveChecking(account, userID) {
			copied := *account
			return &copied, nil
		}
	}
	return nil, ledgererr.NoActiveCheckingAccount(userID)
}

func (s *MemoryStore) GetContractByAccountID(ctx context.Context, accountID int64) (*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contract, ok := s.contracts[accountID]
	if !ok {
		return nil, ledgererr.ContractNotFound(accountID)
	}
	return copyContract(contract), nil
}

// ListTransactionsByAccount returns the account's ledger rows, newest first.
func (s *MemoryStore) ListTransactionsByAccount(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var transactions []models.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if (t.FromAccountID != nil && *t.FromAccountID == accountID) || (t.ToAccountID != nil && *t.ToAccountID == accountID) {
			transactions = append(transactions, t)
		}
	}
	return transactions, nil
}

func (s *MemoryStore) ListMaturedContracts(ctx context.Context, today time.Time) ([]models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var contracts []models.Contract
	for _, contract := range s.contracts {
		if contract.ContractCondition == models.ContractInProgress && !today.Before(contract.MaturityDate) {
			contracts = append(contracts, *copyContract(contract))
		}
	}
	sort.Slice(contracts, func(i, j int) bool { return contracts[i].ContractID < contracts[j].ContractID })
	return contracts, nil
}

func (s *MemoryStore) rowLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.rowLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.rowLocks[id] = l
	}
	return l
}

type memoryTx struct {
	store *MemoryStore
	held  []*sync.Mutex

	// staged writes, keyed by account id
	accounts     map[int64]*models.Account
	contracts    map[int64]*models.Contract
	created      []int64
	transactions []models.Transaction
}

func (tx *memoryTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
}

func (tx *memoryTx) isCreated(id int64) bool {
	for _, c := range tx.created {
		if c == id {
			return true
		}
	}
	return false
}

func (tx *memoryTx) LockAccounts(ctx context.Context, ids ...int64) (map[int64]*models.Account, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	locked := make(map[int64]*models.Account, len(sorted))
	for _, id := range sorted {
		if _, dup := locked[id]; dup {
			continue
		}
		if tx.isCreated(id) {
			copied := *tx.accounts[id]
			locked[id] = &copied
			continue
		}

		tx.store.mu.RLock()
		_, exists := tx.store.accounts[id]
		tx.store.mu.RUnlock()
		if !exists {
			return nil, ledgererr.AccountNotFound(id)
		}

		l := tx.store.rowLock(id)
		l.Lock()
		tx.held = append(tx.held, l)

		account, err := tx.account(id)
		if err != nil {
			return nil, err
		}
		locked[id] = account
	}
	return locked, nil
}

// account returns the staged version of id if any, else the committed one.
func (tx *memoryTx) account(id int64) (*models.Account, error) {
	if staged, ok := tx.accounts[id]; ok {
		copied := *staged
		return &copied, nil
	}
	return tx.store.GetAccount(context.Background(), id)
}

func (tx *memoryTx) FindActiveCheckingAccountID(ctx context.Context, userID int64) (int64, error) {
	for _, id := range tx.created {
		if isActiveChecking(tx.accounts[id], userID) {
			return id, nil
		}
	}
	account, err := tx.store.FindActiveCheckingAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}

func (tx *memoryTx) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.AccountType == models.AccountTypeChecking && account.AccountState == models.AccountStateActive {
		if existing, err := tx.FindActiveCheckingAccountID(ctx, account.UserID); err == nil {
			return ledgererr.CheckingAccountExists(account.UserID, existing)
		}
	}

	tx.store.mu.Lock()
	tx.store.nextAccountID++
	account.ID = tx.store.nextAccountID
	tx.store.mu.Unlock()

	copied := *account
	tx.accounts[account.ID] = &copied
	tx.created = append(tx.created, account.ID)
	return nil
}

func (tx *memoryTx) UpdateAccount(ctx context.Context, account *models.Account) error {
	if _, ok := tx.accounts[account.ID]; !ok {
		if _, err := tx.store.GetAccount(ctx, account.ID); err != nil {
			return err
		}
	}
	copied := *account
	tx.accounts[account.ID] = &copied
	return nil
}

func (tx *memoryTx) GetContractByAccountID(ctx context.Context, accountID int64) (*models.Contract, error) {
	if staged, ok := tx.contracts[accountID]; ok {
		return copyContract(staged), nil
	}
	return tx.store.GetContractByAccountID(ctx, accountID)
}

func (tx *memoryTx) CreateContract(ctx context.Context, contract *models.Contract) error {
	tx.store.mu.Lock()
	tx.store.nextContractID++
	contract.ContractID = tx.store.nextContractID
	tx.store.mu.Unlock()

	tx.contracts[contract.AccountID] = copyContract(contract)
	return nil
}

func (tx *memoryTx) UpdateContract(ctx context.Context, contract *models.Contract) error {
	if _, err := tx.GetContractByAccountID(ctx, contract.AccountID); err != nil {
		return err
	}
	tx.contracts[contract.AccountID] = copyContract(contract)
	return nil
}

func (tx *memoryTx) AppendTransaction(ctx context.Context, transaction *models.Transaction) error {
	tx.store.mu.Lock()
	tx.store.nextTransactionID++
	transaction.ID = tx.store.nextTransactionID
	tx.store.mu.Unlock()

	tx.transactions = append(tx.transactions, *transaction)
	return nil
}

func (tx *memoryTx) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range tx.created {
		account := tx.accounts[id]
		if account.AccountType != models.AccountTypeChecking || account.AccountState != models.AccountStateActive {
			continue
		}
		for _, existing := range s.accounts {
			if isActiveChecking(existing, account.UserID) {
				return ledgererr.CheckingAccountExists(account.UserID, existing.ID)
			}
		}
	}

	for id, account := range tx.accounts {
		s.accounts[id] = account
	}
	for accountID, contract := range tx.contracts {
		s.contracts[accountID] = contract
	}
	s.transactions = append(s.transactions, tx.transactions...)
	return nil
}

func isActiveChecking(account *models.Account, userID int64) bool {
	return account.UserID == userID &&
		account.AccountType == models.AccountTypeChecking &&
		account.AccountState == models.AccountStateActive
}

func copyContract(c *models.Contract) *models.Contract {
	copied := *c
	if c.LatestPaymentDate != nil {
		d := *c.LatestPaymentDate
		copied.LatestPaymentDate = &d
	}
	return &copied
}
