package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

func TestEmail(t *testing.T) {
	cases := map[string]bool{
		"alice@example.com":         true,
		"a.b+tag@city.gov.uk":       true,
		"not-an-email":              false,
		"Alice <alice@example.com>": false,
		"alice@localhost":           false,
		"":                          false,
	}
	for input, ok := range cases {
		v := Violations{}
		Email("email", input, v)
		assert.Equal(t, ok, v.Empty(), input)
	}
}

func TestRequiredTakesPrecedence(t *testing.T) {
	v := Violations{}
	Required("password", "", v)
	MinLength("password", "", 8, v)
	assert.Equal(t, "required", v["password"])
}

func TestDate(t *testing.T) {
	v := Violations{}
	Date("start_date", "2024-03-01", v)
	Date("end_date", "", v)
	assert.True(t, v.Empty())

	Date("start_date", "03/01/2024", v)
	assert.Equal(t, "invalid_date", v["start_date"])
}

func TestDateRejectsImpossibleDays(t *testing.T) {
	for _, input := range []string{"2024-13-45", "2024-02-31", "0000-00-00", "2023-02-29"} {
		v := Violations{}
		Date("date", input, v)
		assert.Equal(t, "invalid_date", v["date"], input)
	}

	v := Violations{}
	Date("date", "2024-02-29", v)
	assert.True(t, v.Empty())
}

func TestErrNamesFirstField(t *testing.T) {
	assert.NoError(t, Violations{}.Err())

	v := Violations{"username": "required", "email": "invalid_email"}
	err := v.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidFormat))

	de := apperrors.ToDomainError(err)
	assert.Equal(t, 400, de.HTTPStatus)
	assert.Equal(t, "email", de.Details["field"])
}
