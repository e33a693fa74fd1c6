package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxBracket is the band net taxable income falls into
type TaxBracket string

const (
	TaxBracketLow    TaxBracket = "Low"
	TaxBracketMedium TaxBracket = "Medium"
	TaxBracketHigh   TaxBracket = "High"
)

// TaxStatus tracks whether a period can still accept entries
type TaxStatus string

const (
	TaxStatusPending TaxStatus = "pending"
	TaxStatusFiled   TaxStatus = "filed"
)

var (
	highBracketFloor   = decimal.NewFromInt(75000)
	mediumBracketFloor = decimal.NewFromInt(40000)

	bracketRates = map[TaxBracket]decimal.Decimal{
		TaxBracketLow:    decimal.RequireFromString("0.12"),
		TaxBracketMedium: decimal.RequireFromString("0.18"),
		TaxBracketHigh:   decimal.RequireFromString("0.25"),
	}
)

// TaxLedger accumulates income and deductions for one owner and one period
type TaxLedger struct {
	ID              uuid.UUID
	OwnerID         uuid.UUID
	Period          string // e.g. "2025"
	TotalIncome     decimal.Decimal
	TotalDeductions decimal.Decimal
	NetTaxable      decimal.Decimal // derived
	Bracket         TaxBracket      // derived
	EstimatedTax    decimal.Decimal // derived
	Status          TaxStatus
	FiledAt         *time.Time
	LastUpdated     time.Time
	Version         int64
}

func (t *TaxLedger) Ref() EntityRef        { return EntityRef{Kind: EntityTaxLedger, ID: t.ID} }
func (t *TaxLedger) Owner() uuid.UUID      { return t.OwnerID }
func (t *TaxLedger) CurrentVersion() int64 { return t.Version }

// Recompute refreshes every derived field from income and deductions
func (t *TaxLedger) Recompute() {
	net := t.TotalIncome.Sub(t.TotalDeductions)
	if net.IsNegative() {
		net = decimal.Zero
	}
	t.NetTaxable = net
	t.Bracket = BracketFor(net)
	t.EstimatedTax = net.Mul(bracketRates[t.Bracket]).Round(2)
}

// BracketFor returns the bracket for a net taxable amount
func BracketFor(net decimal.Decimal) TaxBracket {
	switch {
	case net.GreaterThan(highBracketFloor):
		return TaxBracketHigh
	case net.GreaterThan(mediumBracketFloor):
		return TaxBracketMedium
	default:
		return TaxBracketLow
	}
}

// BracketRate returns the flat rate applied to a bracket
func BracketRate(b TaxBracket) decimal.Decimal {
	return bracketRates[b]
}

// Validate ensures the tax ledger adheres to domain rules
func (t *TaxLedger) Validate() error {
	if t.OwnerID == uuid.Nil {
		return errors.New("tax ledger owner cannot be empty")
	}
	if t.Period == "" {
		return errors.New("tax period cannot be empty")
	}
	if t.TotalIncome.IsNegative() || t.TotalDeductions.IsNegative() {
		return errors.New("tax totals cannot be negative")
	}
	if t.Status != TaxStatusPending && t.Status != TaxStatusFiled {
		return errors.New("invalid tax status")
	}
	return nil
}
