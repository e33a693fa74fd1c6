package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies ledger failures so transports can map them without string matching
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation"
	KindInvalidAmount          ErrorKind = "invalid_amount"
	KindEntityNotFound         ErrorKind = "entity_not_found"
	KindInsufficientFunds      ErrorKind = "insufficient_funds"
	KindInsufficientHoldings   ErrorKind = "insufficient_holdings"
	KindConcurrentModification ErrorKind = "concurrent_modification"
	KindFrozenEntity           ErrorKind = "frozen_entity"
	KindLoanNotActive          ErrorKind = "loan_not_active"
	KindTaxPeriodClosed        ErrorKind = "tax_period_closed"
)

// Sentinels for errors.Is. Matching only compares the Kind.
var (
	ErrValidation             = &LedgerError{Kind: KindValidation}
	ErrInvalidAmount          = &LedgerError{Kind: KindInvalidAmount}
	ErrEntityNotFound         = &LedgerError{Kind: KindEntityNotFound}
	ErrInsufficientFunds      = &LedgerError{Kind: KindInsufficientFunds}
	ErrInsufficientHoldings   = &LedgerError{Kind: KindInsufficientHoldings}
	ErrConcurrentModification = &LedgerError{Kind: KindConcurrentModification}
	ErrFrozenEntity           = &LedgerError{Kind: KindFrozenEntity}
	ErrLoanNotActive          = &LedgerError{Kind: KindLoanNotActive}
	ErrTaxPeriodClosed        = &LedgerError{Kind: KindTaxPeriodClosed}
)

// LedgerError carries the kind, the offending entity and the attempted amount.
// Err holds the underlying cause (for instance a store error) and is never rendered to callers.
type LedgerError struct {
	Kind    ErrorKind
	Entity  EntityRef
	Amount  decimal.Decimal
	Message string
	Err     error
}

func (e *LedgerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Is reports whether target is a LedgerError of the same kind
func (e *LedgerError) Is(target error) bool {
	var t *LedgerError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or "" if err is not a LedgerError
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	return ""
}

// IsRetryable reports whether the failure is transient and the whole operation may be re-run
func IsRetryable(err error) bool {
	return KindOf(err) == KindConcurrentModification
}

func NewValidationError(msg string) *LedgerError {
	return &LedgerError{Kind: KindValidation, Message: msg}
}

func NewInvalidAmountError(ref EntityRef, amount decimal.Decimal) *LedgerError {
	return &LedgerError{
		Kind:    KindInvalidAmount,
		Entity:  ref,
		Amount:  amount,
		Message: fmt.Sprintf("invalid amount %s: must be positive", amount),
	}
}

func NewNotFoundError(ref EntityRef) *LedgerError {
	return &LedgerError{
		Kind:    KindEntityNotFound,
		Entity:  ref,
		Message: fmt.Sprintf("%s not found", ref),
	}
}

// NewNotFoundByKeyError is used for entities addressed by a natural key (owner+symbol, owner+period)
func NewNotFoundByKeyError(kind EntityKind, key string) *LedgerError {
	return &LedgerError{
		Kind:    KindEntityNotFound,
		Entity:  EntityRef{Kind: kind},
		Message: fmt.Sprintf("%s %s not found", kind, key),
	}
}

func NewInsufficientFundsError(ref EntityRef, amount, available decimal.Decimal) *LedgerError {
	return &LedgerError{
		Kind:    KindInsufficientFunds,
		Entity:  ref,
		Amount:  amount,
		Message: fmt.Sprintf("insufficient funds: %s cannot cover %s (available %s)", ref, amount, available),
	}
}

func NewInsufficientHoldingsError(ref EntityRef, quantity, held decimal.Decimal) *LedgerError {
	return &LedgerError{
		Kind:    KindInsufficientHoldings,
		Entity:  ref,
		Amount:  quantity,
		Message: fmt.Sprintf("insufficient holdings: %s holds %s, requested %s", ref, held, quantity),
	}
}

func NewConcurrentModificationError(ref EntityRef, cause error) *LedgerError {
	return &LedgerError{
		Kind:    KindConcurrentModification,
		Entity:  ref,
		Message: fmt.Sprintf("concurrent modification of %s", ref),
		Err:     cause,
	}
}

func NewFrozenEntityError(ref EntityRef, amount decimal.Decimal) *LedgerError {
	return &LedgerError{
		Kind:    KindFrozenEntity,
		Entity:  ref,
		Amount:  amount,
		Message: fmt.Sprintf("%s is frozen", ref),
	}
}

func NewLoanNotActiveError(ref EntityRef, status LoanStatus, amount decimal.Decimal) *LedgerError {
	return &LedgerError{
		Kind:    KindLoanNotActive,
		Entity:  ref,
		Amount:  amount,
		Message: fmt.Sprintf("%s is %s, only active loans accept repayments", ref, status),
	}
}

func NewTaxPeriodClosedError(ref EntityRef, period string) *LedgerError {
	return &LedgerError{
		Kind:    KindTaxPeriodClosed,
		Entity:  ref,
		Message: fmt.Sprintf("tax period %s is already filed", period),
	}
}
