package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies settlement failures. Callers branch on the kind, clients on Reason.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindPermission         ErrorKind = "permission"
	KindStateConflict      ErrorKind = "state_conflict"
	KindExternalDependency ErrorKind = "external_dependency"
	KindInsufficientFunds  ErrorKind = "insufficient_funds"
)

type Error struct {
	Kind    ErrorKind
	Reason  string
	Message string
	// Quantity is the value that caused the rejection, e.g. the available balance.
	Quantity *decimal.Decimal
	// Status is the current state for state conflicts.
	Status string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Reason, e.Message)
	if e.Quantity != nil {
		msg += fmt.Sprintf(" (%s)", e.Quantity.StringFixed(2))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and reason, so sentinel-style checks work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Reason == "" || e.Reason == t.Reason)
}

func NewValidationError(reason, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(reason, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func NewPermissionError(reason, format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func NewStateConflictError(reason, status, format string, args ...any) *Error {
	return &Error{Kind: KindStateConflict, Reason: reason, Status: status, Message: fmt.Sprintf(format, args...)}
}

func NewInsufficientFundsError(reason string, quantity decimal.Decimal, format string, args ...any) *Error {
	q := quantity
	return &Error{Kind: KindInsufficientFunds, Reason: reason, Quantity: &q, Message: fmt.Sprintf(format, args...)}
}

func NewExternalError(reason string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindExternalDependency, Reason: reason, Err: err, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a settlement error, or "" for unclassified errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// ReasonOf returns the stable reason string of a settlement error.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}
