package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/civicdesk/municipal-service/internal/auth"
	"github.com/civicdesk/municipal-service/internal/config"
	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/repository"
	"github.com/civicdesk/municipal-service/internal/validation"
	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

const (
	minPasswordLength = 8
	// bcrypt refuses longer inputs
	maxPasswordBytes = 72
)

// AccountService coordinates registration, login and role management.
type AccountService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int

	dummyOnce sync.Once
	dummyHash string
}

// NewAccountService builds the service.
func NewAccountService(cfg config.AuthConfig, accounts repository.AccountRepository, tokenMgr *auth.TokenManager) *AccountService {
	return &AccountService{
		accounts:   accounts,
		tokenMgr:   tokenMgr,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a citizen account and signs a token for it.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*domain.Account, domain.Token, error) {
	account, err := s.createAccount(ctx, username, email, password, domain.RoleCitizen)
	if err != nil {
		return nil, domain.Token{}, err
	}
	token, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, domain.Token{}, err
	}
	return account, token, nil
}

// BootstrapAdmin creates an administrator account. It is used from the CLI
// to seed the first admin, since no admin exists to grant the role.
func (s *AccountService) BootstrapAdmin(ctx context.Context, username, email, password string) (*domain.Account, error) {
	return s.createAccount(ctx, username, email, password, domain.RoleAdmin)
}

func (s *AccountService) createAccount(ctx context.Context, username, email, password string, role domain.Role) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	v := validation.Violations{}
	validation.Required("username", username, v)
	validation.MaxLength("username", username, 80, v)
	validation.Required("email", email, v)
	validation.Email("email", email, v)
	validation.Required("password", password, v)
	validation.MinLength("password", password, minPasswordLength, v)
	validation.MaxBytes("password", password, maxPasswordBytes, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if taken, err := s.identityTaken(ctx, username, email); err != nil {
		return nil, err
	} else if taken {
		return nil, apperrors.NewDuplicateIdentity()
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		// a concurrent registration can slip past the lookup above
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewDuplicateIdentity()
		}
		return nil, err
	}
	return account, nil
}

func (s *AccountService) identityTaken(ctx context.Context, username, email string) (bool, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return true, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return true, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	return false, nil
}

// Authenticate checks credentials. Unknown email and wrong password produce
// the same error, and both pay for one bcrypt comparison.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.Account, domain.Token, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = auth.ComparePassword(s.dummyPasswordHash(), password)
			return nil, domain.Token{}, apperrors.NewInvalidCredentials()
		}
		return nil, domain.Token{}, err
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, domain.Token{}, apperrors.NewInvalidCredentials()
	}
	s.upgradeHash(ctx, account, password)
	token, err := s.tokenMgr.GenerateToken(account)
	if err != nil {
		return nil, domain.Token{}, err
	}
	return account, token, nil
}

// upgradeHash re-hashes the password after a cost change. Failure only
// delays the upgrade to the next login.
func (s *AccountService) upgradeHash(ctx context.Context, account *domain.Account, password string) {
	if !auth.NeedsRehash(account.PasswordHash, s.bcryptCost) {
		return
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return
	}
	previous := account.PasswordHash
	account.PasswordHash = hash
	if err := s.accounts.Update(ctx, account); err != nil {
		account.PasswordHash = previous
	}
}

// SetRole changes the role of target. Only admins may call it.
func (s *AccountService) SetRole(ctx context.Context, actor *domain.Account, targetID, rawRole string) (*domain.Account, error) {
	if actor == nil || actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only administrators may change roles")
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(rawRole)))
	if !role.Valid() {
		return nil, apperrors.NewInvalidFormat("role", "unknown role")
	}

	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"id": targetID})
		}
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}
	target.Role = role
	if err := s.accounts.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// ChangePassword verifies the current password before storing the new hash.
func (s *AccountService) ChangePassword(ctx context.Context, actor *domain.Account, currentPassword, newPassword string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	v := validation.Violations{}
	validation.Required("new_password", newPassword, v)
	validation.MinLength("new_password", newPassword, minPasswordLength, v)
	validation.MaxBytes("new_password", newPassword, maxPasswordBytes, v)
	if err := v.Err(); err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(account.PasswordHash, currentPassword); err != nil {
		return apperrors.NewInvalidCredentials()
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	return s.accounts.Update(ctx, account)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AccountService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AccountService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := auth.HashPassword("not-a-real-password", s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
