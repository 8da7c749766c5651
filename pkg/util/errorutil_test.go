package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewForbidden("nope"))
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestToDomainError(t *testing.T) {
	notFound := ToDomainError(fmt.Errorf("load: %w", pgx.ErrNoRows))
	assert.Equal(t, CodeNotFound, notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	dup := ToDomainError(&pgconn.PgError{Code: "23505"})
	assert.Equal(t, CodeConflict, dup.Code)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.Equal(t, "internal server error", internal.Message)

	assert.Nil(t, ToDomainError(nil))
}

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{NewInvalidStatus("DONE"), http.StatusBadRequest},
		{NewInvalidFormat("email", "bad"), http.StatusBadRequest},
		{NewInvalidTransition("COMPLETED", "PENDING"), http.StatusConflict},
		{NewUnauthorized("who"), http.StatusUnauthorized},
		{NewInvalidCredentials(), http.StatusUnauthorized},
		{NewForbidden("no"), http.StatusForbidden},
		{NewConflict("raced", nil), http.StatusConflict},
		{NewDuplicateIdentity(), http.StatusConflict},
	}
	for _, tc := range cases {
		var domainErr *DomainError
		require.True(t, errors.As(tc.err, &domainErr))
		assert.Equal(t, tc.status, domainErr.HTTPStatus, domainErr.Code)
	}
}

func TestInvalidTransitionDetails(t *testing.T) {
	err := ToDomainError(NewInvalidTransition("COMPLETED", "PENDING"))
	assert.Equal(t, map[string]any{"from": "COMPLETED", "to": "PENDING"}, err.Details)
}
