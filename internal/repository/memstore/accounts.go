package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/civicdesk/municipal-service/internal/domain"
)

type accountRepo struct{ s *Store }

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func (r accountRepo) Create(_ context.Context, account *domain.Account) error {
	if err := r.s.runHook("accounts.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.accounts {
		if strings.EqualFold(existing.Email, account.Email) {
			return uniqueViolation("accounts_email_key")
		}
		if strings.EqualFold(existing.Username, account.Username) {
			return uniqueViolation("accounts_username_key")
		}
	}
	now := time.Now().UTC()
	account.ID = uuid.NewString()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.s.data.accounts[account.ID] = *account
	return nil
}

func (r accountRepo) Update(_ context.Context, account *domain.Account) error {
	if err := r.s.runHook("accounts.Update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.accounts[account.ID]; !ok {
		return errNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	r.s.data.accounts[account.ID] = *account
	return nil
}

func (r accountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	if err := r.s.runHook("accounts.GetByID"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	account, ok := r.s.data.accounts[id]
	if !ok {
		return nil, errNotFound
	}
	return &account, nil
}

func (r accountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a domain.Account) bool { return strings.EqualFold(a.Email, email) })
}

func (r accountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	return r.find(func(a domain.Account) bool { return strings.EqualFold(a.Username, username) })
}

func (r accountRepo) find(match func(domain.Account) bool) (*domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, account := range r.s.data.accounts {
		if match(account) {
			found := account
			return &found, nil
		}
	}
	return nil, errNotFound
}
