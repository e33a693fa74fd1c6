package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/currency"
	"github.com/finverse/ledger-backend/internal/domain"
)

// walletNamespace derives stable wallet ids so provisioning the same owner twice
// lands on the same wallet instead of creating a second one
var walletNamespace = uuid.MustParse("6f1c9a52-0d5e-4c1b-9b3e-2a7c4e8d1f00")

// WalletID returns the id of an owner's primary wallet in a currency
func WalletID(ownerID uuid.UUID, code string) uuid.UUID {
	return uuid.NewSHA1(walletNamespace, []byte(ownerID.String()+":"+strings.ToUpper(code)))
}

// Account is what an owner needs before any ledger operation can run
type Account struct {
	Wallet    *domain.Wallet
	Portfolio *domain.Portfolio
	Created   bool // true if anything was written
}

// Provisioner ensures the base entities of an owner exist
type Provisioner struct {
	Store domain.Store
	Clock func() time.Time
}

// NewProvisioner creates a new Provisioner instance
func NewProvisioner(store domain.Store) *Provisioner {
	return &Provisioner{
		Store: store,
		Clock: time.Now,
	}
}

// Provision ensures the owner has a wallet in the given currency and a portfolio.
// Existing entities are left untouched; missing ones are created empty.
// Balances only ever change through the ledger engine.
func (p *Provisioner) Provision(ctx context.Context, ownerID uuid.UUID, code string) (*Account, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner_id is required")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = domain.DefaultCurrency
	}
	if !currency.Known(code) {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown currency %q", code))
	}

	var account *Account
	err := p.Store.RunInTx(ctx, func(tx domain.Tx) error {
		account = &Account{}
		now := p.Clock().UTC()

		// 1. Wallet
		walletID := WalletID(ownerID, code)
		wallet, err := tx.GetWallet(ctx, walletID)
		if errors.Is(err, domain.ErrEntityNotFound) {
			wallet = &domain.Wallet{
				ID:          walletID,
				OwnerID:     ownerID,
				Balance:     decimal.Zero,
				Currency:    code,
				LastUpdated: now,
			}
			if err := tx.SaveWallet(ctx, wallet); err != nil {
				return fmt.Errorf("failed to create wallet: %w", err)
			}
			account.Created = true
		} else if err != nil {
			return err
		}
		account.Wallet = wallet

		// 2. Portfolio
		portfolio, err := tx.GetPortfolio(ctx, ownerID)
		if errors.Is(err, domain.ErrEntityNotFound) {
			portfolio = &domain.Portfolio{
				ID:             uuid.New(),
				OwnerID:        ownerID,
				TotalValue:     decimal.Zero,
				InvestedAmount: decimal.Zero,
				GrowthPct:      decimal.Zero,
				LastUpdated:    now,
			}
			if err := tx.SavePortfolio(ctx, portfolio); err != nil {
				return fmt.Errorf("failed to create portfolio: %w", err)
			}
			account.Created = true
		} else if err != nil {
			return err
		}
		account.Portfolio = portfolio

		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}
