package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
)

// SellCheck pairs a holding with the quantity the caller wants to sell
type SellCheck struct {
	Holding  *domain.AssetHolding
	Quantity decimal.Decimal
}

// SufficientHoldings enforces quantity requested <= quantity held
var SufficientHoldings = Rule[SellCheck]{
	Name: "sufficient_holdings",
	Check: func(c SellCheck) error {
		if c.Holding.Quantity.LessThan(c.Quantity) {
			return domain.NewInsufficientHoldingsError(c.Holding.Ref(), c.Quantity, c.Holding.Quantity)
		}
		return nil
	},
}

// PricedHolding rejects trades against a holding with no known price
var PricedHolding = Rule[SellCheck]{
	Name: "priced_holding",
	Check: func(c SellCheck) error {
		if !c.Holding.CurrentPrice.IsPositive() {
			return &domain.LedgerError{
				Kind:    domain.KindValidation,
				Entity:  c.Holding.Ref(),
				Message: fmt.Sprintf("no market price known for %s", c.Holding.Symbol),
			}
		}
		return nil
	},
}

var SellRules = []Rule[SellCheck]{PricedHolding, SufficientHoldings}

// CanSell validates a sale against the holding state
func CanSell(h *domain.AssetHolding, quantity decimal.Decimal) error {
	return First(SellCheck{Holding: h, Quantity: quantity}, SellRules...)
}

// CanBuy validates a purchase against the holding state
func CanBuy(h *domain.AssetHolding) error {
	return First(SellCheck{Holding: h}, PricedHolding)
}
