package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// EntityKind identifies the type of a balance-bearing record
type EntityKind string

const (
	EntityWallet    EntityKind = "wallet"
	EntityHolding   EntityKind = "holding"
	EntityPortfolio EntityKind = "portfolio"
	EntityLoan      EntityKind = "loan"
	EntityTaxLedger EntityKind = "tax_ledger"
)

// ParseEntityKind converts a wire value into an EntityKind
func ParseEntityKind(s string) (EntityKind, error) {
	switch k := EntityKind(s); k {
	case EntityWallet, EntityHolding, EntityPortfolio, EntityLoan, EntityTaxLedger:
		return k, nil
	default:
		return "", NewValidationError(fmt.Sprintf("invalid entity kind %q", s))
	}
}

// EntityRef points at a single entity in the store
type EntityRef struct {
	Kind EntityKind
	ID   uuid.UUID
}

func (r EntityRef) String() string {
	if r.ID == uuid.Nil {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s %s", r.Kind, r.ID)
}

// Entity is implemented by every record whose state only changes through the ledger engine.
// Version is the optimistic concurrency token; 0 means the entity has never been committed.
type Entity interface {
	Ref() EntityRef
	Owner() uuid.UUID
	CurrentVersion() int64
}
