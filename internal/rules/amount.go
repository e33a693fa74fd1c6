package rules

import (
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
)

// AmountCheck is an amount attributed to a target entity
type AmountCheck struct {
	Target domain.EntityRef
	Amount decimal.Decimal
}

// PositiveAmount rejects zero and negative amounts
var PositiveAmount = Rule[AmountCheck]{
	Name: "positive_amount",
	Check: func(c AmountCheck) error {
		if !c.Amount.IsPositive() {
			return domain.NewInvalidAmountError(c.Target, c.Amount)
		}
		return nil
	},
}

// ValidAmount runs the rules every money-moving request must satisfy before touching the store
func ValidAmount(target domain.EntityRef, amount decimal.Decimal) error {
	return First(AmountCheck{Target: target, Amount: amount}, PositiveAmount)
}
