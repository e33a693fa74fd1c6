package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
)

// Installment is one monthly payment of a loan
type Installment struct {
	Number  int
	DueDate time.Time
	Amount  decimal.Decimal
	Paid    decimal.Decimal // portion already covered by repayments
}

// Settled reports whether the installment is fully covered
func (i Installment) Settled() bool {
	return i.Paid.GreaterThanOrEqual(i.Amount)
}

// Build splits total into equal monthly installments starting one month after start.
// Logic:
//  1. Every installment but the last is total / months, truncated to cents
//  2. The last installment takes whatever is left
//
// Safety: Ensures the installments sum to total exactly (no cent lost)
func Build(total decimal.Decimal, months int, start time.Time) ([]Installment, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("total amount must be positive")
	}
	if months <= 0 {
		return nil, errors.New("term must be at least one month")
	}
	if months > domain.MaxTermMonths {
		return nil, fmt.Errorf("term cannot exceed %d months", domain.MaxTermMonths)
	}

	regular := total.Div(decimal.NewFromInt(int64(months))).Truncate(2)

	installments := make([]Installment, 0, months)
	scheduled := decimal.Zero
	for n := 1; n <= months; n++ {
		amount := regular
		if n == months {
			amount = total.Sub(scheduled)
		}
		installments = append(installments, Installment{
			Number:  n,
			DueDate: start.AddDate(0, n, 0),
			Amount:  amount,
			Paid:    decimal.Zero,
		})
		scheduled = scheduled.Add(amount)
	}

	if !scheduled.Equal(total) {
		return nil, errors.New("installments do not sum to the total amount")
	}

	return installments, nil
}

// ApplyRepaid marks installments as paid in order until repaid is exhausted
func ApplyRepaid(installments []Installment, repaid decimal.Decimal) []Installment {
	out := make([]Installment, len(installments))
	copy(out, installments)

	left := repaid
	for i := range out {
		if !left.IsPositive() {
			break
		}
		covered := decimal.Min(left, out[i].Amount)
		out[i].Paid = covered
		left = left.Sub(covered)
	}
	return out
}
