package validation

import (
	"net/http"
	"net/mail"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

// Violations maps a field name to a short machine readable reason.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Err converts the violations into an INVALID_FORMAT error naming the first
// offending field, or nil when there are none.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	fields := make([]string, 0, len(v))
	for field := range v {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	details := map[string]any{"field": fields[0], "violations": map[string]string(v)}
	return apperrors.NewDomainError(apperrors.CodeInvalidFormat, fields[0]+": "+v[fields[0]], http.StatusBadRequest, details)
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MinLength(field, value string, n int, v Violations) {
	if _, exists := v[field]; exists {
		return
	}
	if utf8.RuneCountInString(value) < n {
		v[field] = "too_short"
	}
}

func MaxLength(field, value string, n int, v Violations) {
	if _, exists := v[field]; exists {
		return
	}
	if utf8.RuneCountInString(value) > n {
		v[field] = "too_long"
	}
}

// MaxBytes limits the encoded size rather than the character count.
func MaxBytes(field, value string, n int, v Violations) {
	if _, exists := v[field]; exists {
		return
	}
	if len(value) > n {
		v[field] = "too_long"
	}
}

// Email accepts a bare address only; display-name forms are rejected.
func Email(field, value string, v Violations) {
	if _, exists := v[field]; exists {
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		v[field] = "invalid_email"
	}
}

func IntRange(field string, val, minVal, maxVal int, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

func NonNegativeFloat(field string, val *float64, v Violations) {
	if val != nil && *val < 0 {
		v[field] = "must_be_non_negative"
	}
}

// Date requires a real calendar day in YYYY-MM-DD form when one is given.
func Date(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := time.Parse(time.DateOnly, value); err != nil {
		v[field] = "invalid_date"
	}
}
