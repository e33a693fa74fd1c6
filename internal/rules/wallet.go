package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
)

// WalletCheck pairs a wallet read at transaction time with a proposed amount
type WalletCheck struct {
	Wallet *domain.Wallet
	Amount decimal.Decimal
}

var WalletNotArchived = Rule[WalletCheck]{
	Name: "wallet_not_archived",
	Check: func(c WalletCheck) error {
		if c.Wallet.Archived {
			return &domain.LedgerError{
				Kind:    domain.KindValidation,
				Entity:  c.Wallet.Ref(),
				Amount:  c.Amount,
				Message: fmt.Sprintf("%s is archived", c.Wallet.Ref()),
			}
		}
		return nil
	},
}

var WalletNotFrozen = Rule[WalletCheck]{
	Name: "wallet_not_frozen",
	Check: func(c WalletCheck) error {
		if c.Wallet.Frozen {
			return domain.NewFrozenEntityError(c.Wallet.Ref(), c.Amount)
		}
		return nil
	},
}

// SufficientBalance enforces balance - amount >= 0
var SufficientBalance = Rule[WalletCheck]{
	Name: "sufficient_balance",
	Check: func(c WalletCheck) error {
		if c.Wallet.Balance.LessThan(c.Amount) {
			return domain.NewInsufficientFundsError(c.Wallet.Ref(), c.Amount, c.Wallet.Balance)
		}
		return nil
	},
}

// SameCurrency is used by transfers. The wallet in the check is the recipient.
func SameCurrency(currency string) Rule[WalletCheck] {
	return Rule[WalletCheck]{
		Name: "same_currency",
		Check: func(c WalletCheck) error {
			if c.Wallet.Currency != currency {
				return &domain.LedgerError{
					Kind:    domain.KindValidation,
					Entity:  c.Wallet.Ref(),
					Amount:  c.Amount,
					Message: fmt.Sprintf("currency mismatch: %s holds %s, transfer is in %s", c.Wallet.Ref(), c.Wallet.Currency, currency),
				}
			}
			return nil
		},
	}
}

// DebitRules are evaluated in this order for every outgoing movement
var DebitRules = []Rule[WalletCheck]{WalletNotArchived, WalletNotFrozen, SufficientBalance}

// CreditRules are evaluated for incoming movements. Frozen wallets still accept credits.
var CreditRules = []Rule[WalletCheck]{WalletNotArchived}

// CanDebit validates an outgoing movement against the wallet state
func CanDebit(w *domain.Wallet, amount decimal.Decimal) error {
	return First(WalletCheck{Wallet: w, Amount: amount}, DebitRules...)
}

// CanCredit validates an incoming movement against the wallet state
func CanCredit(w *domain.Wallet, amount decimal.Decimal) error {
	return First(WalletCheck{Wallet: w, Amount: amount}, CreditRules...)
}
