package repository

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/everybank/ledger-service/shared/ledgererr"
	"github.com/everybank/ledger-service/shared/models"
	sharedredis "github.com/everybank/ledger-service/shared/redis"
	goredis "github.com/redis/go-redis/v9"
)

const accountViewKeyPrefix = "ledger:account:view:"

// accountCacheEntry is the Redis representation of an account. Unlike
// models.AccountView it keeps UserID, so ownership can be checked from the
// cache alone.
type accountCacheEntry struct {
	ID                  int64               `json:"id"`
	UserID              int64               `json:"userId"`
	CompanyCode         string              `json:"companyCode"`
	AccountType         models.AccountType  `json:"accountType"`
	CurrentBalance      int64               `json:"currentBalance"`
	AccountState        models.AccountState `json:"accountState"`
	MaturityDate        time.Time           `json:"maturityDate"`
	LastTransactionDate time.Time           `json:"lastTransactionDate"`
	PaymentCount        *int                `json:"paymentCount,omitempty"`
}

// accountViewCache is satisfied by *sharedredis.JSONCache. Get returns
// sharedredis.ErrCacheMiss for an absent key.
type accountViewCache interface {
	Get(ctx context.Context, key string) (*accountCacheEntry, error)
	Set(ctx context.Context, key string, value *accountCacheEntry) error
	Delete(ctx context.Context, key string) error
}

// AccountReadRepository serves AccountViews from the Redis read model and
// falls back to the write store, warming the cache on every cold read.
type AccountReadRepository struct {
	store Store
	cache accountViewCache
}

func NewAccountReadRepository(store Store, redisClient *goredis.Client, ttl time.Duration) *AccountReadRepository {
	return &AccountReadRepository{
		store: store,
		cache: sharedredis.NewJSONCache[accountCacheEntry](redisClient, ttl),
	}
}

// NewUncachedAccountReadRepository serves every read straight from store.
// Used when the service runs without Redis.
func NewUncachedAccountReadRepository(store Store) *AccountReadRepository {
	return &AccountReadRepository{store: store, cache: noCache{}}
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*accountCacheEntry, error) {
	return nil, sharedredis.ErrCacheMiss
}
func (noCache) Set(context.Context, string, *accountCacheEntry) error { return nil }
func (noCache) Delete(context.Context, string) error                  { return nil }

func accountViewKey(id int64) string {
	return accountViewKeyPrefix + strconv.FormatInt(id, 10)
}

func cacheEntryToView(e *accountCacheEntry) *models.AccountView {
	return &models.AccountView{
		ID:                  e.ID,
		UserID:              e.UserID,
		CompanyCode:         e.CompanyCode,
		AccountType:         e.AccountType,
		CurrentBalance:      e.CurrentBalance,
		AccountState:        e.AccountState,
		MaturityDate:        e.MaturityDate,
		LastTransactionDate: e.LastTransactionDate,
		PaymentCount:        e.PaymentCount,
	}
}

// GetByID returns an AccountView, trying Redis first then the store. A
// broken cache only costs a store read.
func (r *AccountReadRepository) GetByID(ctx context.Context, id int64) (*models.AccountView, error) {
	entry, err := r.cache.Get(ctx, accountViewKey(id))
	if err == nil {
		return cacheEntryToView(entry), nil
	}
	if !errors.Is(err, sharedredis.ErrCacheMiss) {
		log.Printf("Account view cache unavailable for account %d: %v", id, err)
	}

	view, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	r.CacheAccountView(ctx, view)
	return view, nil
}

// ListByUserID returns every account the user holds, read from the store.
func (r *AccountReadRepository) ListByUserID(ctx context.Context, userID int64) ([]models.AccountView, error) {
	accounts, err := r.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.AccountView, 0, len(accounts))
	for i := range accounts {
		view := models.AccountToView(&accounts[i])
		if err := r.attachPaymentCount(ctx, view); err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}

// Refresh reloads an account from the store and overwrites its cached view.
func (r *AccountReadRepository) Refresh(ctx context.Context, id int64) (*models.AccountView, error) {
	view, err := r.load(ctx, id)
	if err != nil {
		if errors.Is(err, ledgererr.ErrAccountNotFound) {
			r.InvalidateAccountView(ctx, id)
		}
		return nil, err
	}
	r.CacheAccountView(ctx, view)
	return view, nil
}

// CacheAccountView stores or refreshes the Redis read model for an account.
func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	entry := &accountCacheEntry{
		ID:                  view.ID,
		UserID:              view.UserID,
		CompanyCode:         view.CompanyCode,
		AccountType:         view.AccountType,
		CurrentBalance:      view.CurrentBalance,
		AccountState:        view.AccountState,
		MaturityDate:        view.MaturityDate,
		LastTransactionDate: view.LastTransactionDate,
		PaymentCount:        view.PaymentCount,
	}
	if err := r.cache.Set(ctx, accountViewKey(view.ID), entry); err != nil {
		log.Printf("Failed to cache account view %d: %v", view.ID, err)
	}
}

func (r *AccountReadRepository) InvalidateAccountView(ctx context.Context, id int64) {
	if err := r.cache.Delete(ctx, accountViewKey(id)); err != nil {
		log.Printf("Failed to invalidate account view %d: %v", id, err)
	}
}

func (r *AccountReadRepository) load(ctx context.Context, id int64) (*models.AccountView, error) {
	account, err := r.store.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	view := models.AccountToView(account)
	if err := r.attachPaymentCount(ctx, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (r *AccountReadRepository) attachPaymentCount(ctx context.Context, view *models.AccountView) error {
	if view.AccountType != models.AccountTypeSaving {
		return nil
	}
	contract, err := r.store.GetContractByAccountID(ctx, view.ID)
	if err != nil {
		return err
	}
	count := contract.CurrentPaymentCount
	view.PaymentCount = &count
	return nil
}
