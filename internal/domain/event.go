package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind describes what a committed mutation did to its entity
type EventKind string

const (
	EventDebit       EventKind = "debit"
	EventCredit      EventKind = "credit"
	EventTransferOut EventKind = "transfer_out"
	EventTransferIn  EventKind = "transfer_in"
	EventTrade       EventKind = "trade"
	EventRevaluation EventKind = "revaluation"
	EventOrigination EventKind = "origination"
	EventRepayment   EventKind = "repayment"
	EventIncome      EventKind = "income"
	EventDeduction   EventKind = "deduction"
	EventFiling      EventKind = "filing"
	EventFreeze      EventKind = "freeze"
	EventUnfreeze    EventKind = "unfreeze"
)

// LedgerEvent is an immutable record of one committed mutation of one entity
type LedgerEvent struct {
	ID               uuid.UUID
	EntityID         uuid.UUID
	EntityKind       EntityKind
	OwnerID          uuid.UUID
	Kind             EventKind
	Operation        string          // operation that produced the event
	Amount           decimal.Decimal // ABSOLUTE VALUE (Always >= 0)
	ResultingBalance decimal.Decimal // state after the mutation, never recomputed
	Timestamp        time.Time       // assigned by the store at commit
	Sequence         int64           // assigned by the store at commit, strictly increasing
	IdempotencyKey   string
	Details          map[string]string
}

// EntityRef returns the reference of the entity the event belongs to
func (e *LedgerEvent) EntityRef() EntityRef {
	return EntityRef{Kind: e.EntityKind, ID: e.EntityID}
}

// Validate ensures the event adheres to domain rules
func (e *LedgerEvent) Validate() error {
	if e.ID == uuid.Nil {
		return errors.New("event ID cannot be empty")
	}
	if e.EntityID == uuid.Nil {
		return errors.New("event must reference an entity")
	}
	if e.Kind == "" {
		return errors.New("event kind cannot be empty")
	}
	if e.Amount.IsNegative() {
		return errors.New("event amount must be positive (absolute value)")
	}
	return nil
}

// Page selects a window of history, newest first
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Normalize clamps the page into accepted bounds
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
