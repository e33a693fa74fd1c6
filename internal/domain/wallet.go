package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used for wallets provisioned without an explicit currency
const DefaultCurrency = "KES"

// Wallet represents a cash balance owned by a single user
type Wallet struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Balance     decimal.Decimal // never negative, no overdraft policy exists
	Currency    string          // ISO 4217 code
	Frozen      bool            // frozen wallets reject every debit
	Archived    bool            // archived wallets reject every mutation
	LastUpdated time.Time
	Version     int64
}

func (w *Wallet) Ref() EntityRef        { return EntityRef{Kind: EntityWallet, ID: w.ID} }
func (w *Wallet) Owner() uuid.UUID      { return w.OwnerID }
func (w *Wallet) CurrentVersion() int64 { return w.Version }

// Validate ensures the wallet adheres to domain rules
func (w *Wallet) Validate() error {
	if w.ID == uuid.Nil {
		return errors.New("wallet ID cannot be empty")
	}
	if w.OwnerID == uuid.Nil {
		return errors.New("wallet owner cannot be empty")
	}
	if len(w.Currency) != 3 {
		return errors.New("wallet currency must be a 3 letter ISO code")
	}
	if w.Balance.IsNegative() {
		return errors.New("wallet balance cannot be negative")
	}
	return nil
}
