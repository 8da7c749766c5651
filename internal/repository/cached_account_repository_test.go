package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/repository"
	"github.com/civicdesk/municipal-service/internal/repository/memstore"
)

func TestCachedAccountRepository(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	loads := 0
	store.Hook("accounts.GetByID", func() error {
		loads++
		return nil
	})

	account := &domain.Account{Username: "amina", Email: "amina@city.example", Role: domain.RoleCitizen}
	require.NoError(t, store.Accounts().Create(ctx, account))

	repo := repository.NewCachedAccountRepository(store.Accounts(), 16, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := repo.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleCitizen, got.Role)
	}
	assert.Equal(t, 1, loads)

	account.Role = domain.RoleEmployee
	require.NoError(t, repo.Update(ctx, account))

	got, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, got.Role)
	assert.Equal(t, 2, loads)
}

func TestCachedAccountRepositoryDisabled(t *testing.T) {
	store := memstore.New()
	repo := repository.NewCachedAccountRepository(store.Accounts(), 0, time.Minute)
	assert.Equal(t, store.Accounts(), repo)
}
