package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error codes surfaced in API responses.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidFormat      = "INVALID_FORMAT"
	CodeInvalidStatus      = "INVALID_STATUS"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	CodeInternal           = "INTERNAL_ERROR"
)

const pgUniqueViolation = "23505"

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code, so callers can write
// errors.Is(err, util.ErrForbidden).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrForbidden          = &DomainError{Code: CodeForbidden}
	ErrNotFound           = &DomainError{Code: CodeNotFound}
	ErrInvalidStatus      = &DomainError{Code: CodeInvalidStatus}
	ErrInvalidFormat      = &DomainError{Code: CodeInvalidFormat}
	ErrInvalidTransition  = &DomainError{Code: CodeInvalidTransition}
	ErrDuplicateIdentity  = &DomainError{Code: CodeDuplicateIdentity}
	ErrInvalidCredentials = &DomainError{Code: CodeInvalidCredentials}
	ErrConflict           = &DomainError{Code: CodeConflict}
	ErrUnauthorized       = &DomainError{Code: CodeUnauthorized}
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

// NewInvalidFormat reports malformed input on a single field.
func NewInvalidFormat(field, message string) error {
	return NewDomainError(CodeInvalidFormat, message, http.StatusBadRequest, map[string]any{"field": field})
}

// NewInvalidStatus reports a status value outside the enumeration.
func NewInvalidStatus(value string) error {
	return NewDomainError(CodeInvalidStatus, "invalid status", http.StatusBadRequest, map[string]any{
		"field": "status",
		"value": value,
	})
}

// NewInvalidTransition reports a move the lifecycle does not allow.
func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition, "status transition not allowed", http.StatusConflict, map[string]any{
		"from": from,
		"to":   to,
	})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewInvalidCredentials never says which half of the credential pair was wrong.
func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "invalid email or password", http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewDuplicateIdentity is deliberately vague about which existing account conflicts.
func NewDuplicateIdentity() error {
	return NewDomainError(CodeDuplicateIdentity, "username or email already registered", http.StatusConflict, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	if IsUniqueViolation(err) {
		return NewConflict("resource already exists", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
