// Package currency wraps go-money for ISO code checks and human readable amounts.
package currency

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Known reports whether code is an ISO 4217 currency go-money knows about
func Known(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// Format renders an amount in its currency, e.g. "$1,234.50" or "KSh500.00".
// Unknown codes fall back to "<amount> <code>".
func Format(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(code)
	cur := money.GetCurrency(code)
	if cur == nil {
		return amount.StringFixed(2) + " " + code
	}

	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), code).Display()
}
