package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store provides atomic units over the entity documents and their history.
// Reads inside a unit record the version they saw; the commit fails with
// ErrConcurrentModification if any of those versions changed in between.
type Store interface {
	// RunInTx runs fn in one atomic unit. Nothing is written unless fn returns nil.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the store inside one atomic unit
type Tx interface {
	// GetWallet retrieves a wallet by its ID
	GetWallet(ctx context.Context, id uuid.UUID) (*Wallet, error)

	// GetPortfolio retrieves the portfolio of an owner
	GetPortfolio(ctx context.Context, ownerID uuid.UUID) (*Portfolio, error)

	// GetHolding retrieves an owner's position in a symbol
	GetHolding(ctx context.Context, ownerID uuid.UUID, symbol string) (*AssetHolding, error)

	// GetLoan retrieves a loan by its ID
	GetLoan(ctx context.Context, id uuid.UUID) (*Loan, error)

	// GetTaxLedger retrieves the tax ledger of an owner for a period
	GetTaxLedger(ctx context.Context, ownerID uuid.UUID, period string) (*TaxLedger, error)

	// FindEventsByIdempotencyKey returns events committed under key, primary entity first
	FindEventsByIdempotencyKey(ctx context.Context, key string) ([]*LedgerEvent, error)

	// Save* buffer a write. Version 0 inserts; any other version updates
	// only if the stored version still matches, then bumps it.
	SaveWallet(ctx context.Context, w *Wallet) error
	SavePortfolio(ctx context.Context, p *Portfolio) error
	SaveHolding(ctx context.Context, h *AssetHolding) error
	SaveLoan(ctx context.Context, l *Loan) error
	SaveTaxLedger(ctx context.Context, t *TaxLedger) error

	// AppendEvent adds an event to the history log. Timestamp and Sequence are assigned by the store.
	AppendEvent(ctx context.Context, e *LedgerEvent) error
}

// StateReader is the read side used by display layers. It never participates in a unit.
type StateReader interface {
	// GetState retrieves the committed state of any entity
	GetState(ctx context.Context, ref EntityRef) (Entity, error)

	// ListHistory returns events of an entity ordered by commit time descending
	ListHistory(ctx context.Context, ref EntityRef, page Page) ([]*LedgerEvent, error)

	// CountHistory returns the number of events recorded for an entity
	CountHistory(ctx context.Context, ref EntityRef) (int, error)

	// ListOwnerEntities returns every entity an owner holds
	ListOwnerEntities(ctx context.Context, ownerID uuid.UUID) ([]Entity, error)
}

// CommentaryRepository persists advisory output separately from the ledger
type CommentaryRepository interface {
	// Save stores a commentary entry
	Save(ctx context.Context, c *Commentary) error

	// ListByOwner retrieves the latest commentary for an owner, newest first
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*Commentary, error)
}
