// Package apperr holds the error taxonomy shared by every domain package.
// Validation and not-found errors are recovered at operation boundaries and
// reported to callers; inconsistency errors abort only the affected operation.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a validation failure so clients can react to it.
type Code string

const (
	CodeInvalidInput       Code = "invalid_input"
	CodeInvalidPickCount   Code = "invalid_pick_count"
	CodeDuplicatePick      Code = "duplicate_pick"
	CodeSingleTeam         Code = "single_team"
	CodeEntryTooLarge      Code = "entry_too_large"
	CodeStakeCapExceeded   Code = "stake_cap_exceeded"
	CodeSublineUnavailable Code = "subline_unavailable"
	CodeInsufficientFunds  Code = "insufficient_funds"
	CodeOutsideBusinessDay Code = "outside_business_day"
)

// ValidationError is malformed or policy-violating input. No state is
// committed when one is returned.
type ValidationError struct {
	Code    Code
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
}

// Validation builds a ValidationError.
func Validation(code Code, field, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned when a referenced entity does not exist.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

// NotFound builds a NotFoundError.
func NotFound(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// InconsistencyError signals an upstream data invariant violation. It is
// logged and never retried automatically.
type InconsistencyError struct {
	Message string
}

func (e *InconsistencyError) Error() string {
	return "inconsistency: " + e.Message
}

// Inconsistency builds an InconsistencyError.
func Inconsistency(format string, args ...any) *InconsistencyError {
	return &InconsistencyError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError with the given code.
// An empty code matches any validation error.
func IsValidation(err error, code Code) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return code == "" || ve.Code == code
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInconsistency reports whether err wraps an InconsistencyError.
func IsInconsistency(err error) bool {
	var ie *InconsistencyError
	return errors.As(err, &ie)
}
