package repository

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// cachedAccountRepository keeps recently loaded accounts in a per-instance
// LRU. Only GetByID is cached; it is the lookup made on every authenticated
// request.
type cachedAccountRepository struct {
	AccountRepository
	cache *expirable.LRU[string, domain.Account]
}

// NewCachedAccountRepository wraps next with an expirable LRU. A size or ttl
// of zero disables caching.
func NewCachedAccountRepository(next AccountRepository, size int, ttl time.Duration) AccountRepository {
	if size <= 0 || ttl <= 0 {
		return next
	}
	return &cachedAccountRepository{
		AccountRepository: next,
		cache:             expirable.NewLRU[string, domain.Account](size, nil, ttl),
	}
}

func (r *cachedAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if cached, ok := r.cache.Get(id); ok {
		account := cached
		return &account, nil
	}
	account, err := r.AccountRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.cache.Add(id, *account)
	return account, nil
}

func (r *cachedAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	r.cache.Remove(account.ID)
	if err := r.AccountRepository.Update(ctx, account); err != nil {
		return err
	}
	r.cache.Remove(account.ID)
	return nil
}
