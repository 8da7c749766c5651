package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicdesk/municipal-service/internal/auth"
	"github.com/civicdesk/municipal-service/internal/config"
	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/repository"
	"github.com/civicdesk/municipal-service/internal/repository/memstore"
	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

func newAccountService(accounts repository.AccountRepository) *AccountService {
	return NewAccountService(
		config.AuthConfig{BcryptCost: bcrypt.MinCost},
		accounts,
		auth.NewTokenManager("test-secret", 15),
	)
}

func TestRegisterCreatesCitizenWithToken(t *testing.T) {
	svc := newAccountService(memstore.New().Accounts())

	account, token, err := svc.Register(context.Background(), " amina ", "amina@city.example", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "amina", account.Username)
	assert.Equal(t, domain.RoleCitizen, account.Role)
	assert.NotEqual(t, "s3cretpass", account.PasswordHash)

	claims, err := svc.TokenManager().ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(memstore.New().Accounts())
	_, _, err := svc.Register(ctx, "amina", "amina@city.example", "s3cretpass")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "other", "AMINA@city.example", "s3cretpass")
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateIdentity))

	_, _, err = svc.Register(ctx, "Amina", "other@city.example", "s3cretpass")
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateIdentity))
}

// blindLookups hides existing accounts from the pre-insert check, the way a
// concurrent registration would.
type blindLookups struct {
	repository.AccountRepository
}

func (blindLookups) GetByEmail(context.Context, string) (*domain.Account, error) {
	return nil, pgx.ErrNoRows
}

func (blindLookups) GetByUsername(context.Context, string) (*domain.Account, error) {
	return nil, pgx.ErrNoRows
}

func TestRegisterMapsUniqueViolation(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(blindLookups{memstore.New().Accounts()})
	_, _, err := svc.Register(ctx, "amina", "amina@city.example", "s3cretpass")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "amina2", "amina@city.example", "s3cretpass")
	assert.True(t, errors.Is(err, apperrors.ErrDuplicateIdentity))
}

func TestRegisterValidation(t *testing.T) {
	svc := newAccountService(memstore.New().Accounts())

	_, _, err := svc.Register(context.Background(), "amina", "not-an-email", "s3cretpass")
	require.True(t, errors.Is(err, apperrors.ErrInvalidFormat))

	_, _, err = svc.Register(context.Background(), "amina", "amina@city.example", "short")
	require.True(t, errors.Is(err, apperrors.ErrInvalidFormat))
	assert.Equal(t, "password", apperrors.ToDomainError(err).Details["field"])
}

func TestRegisterRejectsPasswordsBcryptCannotHash(t *testing.T) {
	svc := newAccountService(memstore.New().Accounts())

	_, _, err := svc.Register(context.Background(), "amina", "amina@city.example", strings.Repeat("a", 80))
	require.True(t, errors.Is(err, apperrors.ErrInvalidFormat))
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus)
	assert.Equal(t, "password", domainErr.Details["field"])
	assert.Equal(t, "too_long", domainErr.Details["violations"].(map[string]string)["password"])

	// 36 two-byte runes land exactly on the limit
	_, _, err = svc.Register(context.Background(), "amina", "amina@city.example", strings.Repeat("é", 36))
	assert.NoError(t, err)
}

func TestAuthenticateErrorsAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(memstore.New().Accounts())
	_, _, err := svc.Register(ctx, "amina", "amina@city.example", "s3cretpass")
	require.NoError(t, err)

	_, _, wrongPassword := svc.Authenticate(ctx, "amina@city.example", "guess")
	_, _, unknownEmail := svc.Authenticate(ctx, "nobody@city.example", "guess")

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
	assert.True(t, errors.Is(wrongPassword, apperrors.ErrInvalidCredentials))
	assert.True(t, errors.Is(unknownEmail, apperrors.ErrInvalidCredentials))

	account, token, err := svc.Authenticate(ctx, "Amina@City.example", "s3cretpass")
	require.NoError(t, err)
	assert.Equal(t, "amina", account.Username)
	assert.NotEmpty(t, token.Value)
}

func TestSetRole(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := newAccountService(store.Accounts())
	target, _, err := svc.Register(ctx, "youssef", "youssef@city.example", "s3cretpass")
	require.NoError(t, err)
	admin, err := svc.BootstrapAdmin(ctx, "root", "root@city.example", "s3cretpass")
	require.NoError(t, err)

	_, err = svc.SetRole(ctx, target, target.ID, "ADMIN")
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = svc.SetRole(ctx, admin, target.ID, "MAYOR")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidFormat))

	_, err = svc.SetRole(ctx, admin, uuid.NewString(), "EMPLOYEE")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	updated, err := svc.SetRole(ctx, admin, target.ID, "employee")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, updated.Role)

	stored, err := store.Accounts().GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleEmployee, stored.Role)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(memstore.New().Accounts())
	account, _, err := svc.Register(ctx, "amina", "amina@city.example", "s3cretpass")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, account, "wrong-current", "n3wpassword")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))

	err = svc.ChangePassword(ctx, account, "s3cretpass", "short")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidFormat))

	err = svc.ChangePassword(ctx, account, "s3cretpass", strings.Repeat("b", 73))
	require.True(t, errors.Is(err, apperrors.ErrInvalidFormat))
	assert.Equal(t, "new_password", apperrors.ToDomainError(err).Details["field"])

	require.NoError(t, svc.ChangePassword(ctx, account, "s3cretpass", "n3wpassword"))

	_, _, err = svc.Authenticate(ctx, "amina@city.example", "s3cretpass")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
	_, _, err = svc.Authenticate(ctx, "amina@city.example", "n3wpassword")
	assert.NoError(t, err)
}

func TestAuthenticateUpgradesHashCost(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	weak := newAccountService(store.Accounts())
	account, _, err := weak.Register(ctx, "amina", "amina@city.example", "s3cretpass")
	require.NoError(t, err)

	stronger := NewAccountService(config.AuthConfig{BcryptCost: bcrypt.MinCost + 1}, store.Accounts(), auth.NewTokenManager("test-secret", 15))
	_, _, err = stronger.Authenticate(ctx, "amina@city.example", "s3cretpass")
	require.NoError(t, err)

	stored, err := store.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(stored.PasswordHash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	_, _, err = weak.Authenticate(ctx, "amina@city.example", "s3cretpass")
	assert.NoError(t, err)
}
