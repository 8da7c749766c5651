package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicdesk/municipal-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	account := &domain.Account{ID: "5f0c1c8e-4f43-4b7e-9f55-0c3a2b1d9e10", Role: domain.RoleEmployee}

	token, err := tm.GenerateToken(account)
	require.NoError(t, err)
	assert.Equal(t, account.ID, token.AccountID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), token.ExpiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, domain.RoleEmployee, claims.Role)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issuer := NewTokenManager("one", 15)
	verifier := NewTokenManager("two", 15)

	token, err := issuer.GenerateToken(&domain.Account{ID: "a", Role: domain.RoleCitizen})
	require.NoError(t, err)

	_, err = verifier.ParseToken(token.Value)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := tm.GenerateToken(&domain.Account{ID: "a", Role: domain.RoleCitizen})
	require.NoError(t, err)

	_, err = tm.ParseToken(token.Value)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, ComparePassword(hash, "correct horse"))
	assert.Error(t, ComparePassword(hash, "battery staple"))
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	assert.False(t, NeedsRehash(hash, bcrypt.MinCost))
	assert.True(t, NeedsRehash(hash, bcrypt.MinCost+1))
	assert.True(t, NeedsRehash("garbage", bcrypt.MinCost))
}
