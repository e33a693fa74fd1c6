package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Decimal places kept on stored holding figures. Quantities come from
// usd / price and rarely terminate; values are rounded back to a money scale
// so a buy moves the holding value by exactly the amount paid.
const (
	QuantityPrecision int32 = 18
	ValuePrecision    int32 = 8
)

// AssetHolding is a position in a single symbol. It belongs to exactly one Portfolio.
type AssetHolding struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	PortfolioID  uuid.UUID
	Symbol       string
	Quantity     decimal.Decimal
	CostBasis    decimal.Decimal // USD paid per unit, BookCost / Quantity
	BookCost     decimal.Decimal // USD paid for the units still held
	CurrentPrice decimal.Decimal
	TotalValue   decimal.Decimal // Quantity * CurrentPrice at ValuePrecision
	LastUpdated  time.Time
	Version      int64
}

func (h *AssetHolding) Ref() EntityRef        { return EntityRef{Kind: EntityHolding, ID: h.ID} }
func (h *AssetHolding) Owner() uuid.UUID      { return h.OwnerID }
func (h *AssetHolding) CurrentVersion() int64 { return h.Version }

// MarketValue is quantity times price at ValuePrecision
func (h *AssetHolding) MarketValue() decimal.Decimal {
	return h.Quantity.Mul(h.CurrentPrice).Round(ValuePrecision)
}

// Revalue recomputes TotalValue from quantity and price
func (h *AssetHolding) Revalue() {
	h.TotalValue = h.MarketValue()
}

// Validate ensures the holding adheres to domain rules
func (h *AssetHolding) Validate() error {
	if h.Symbol == "" {
		return errors.New("holding symbol cannot be empty")
	}
	if h.PortfolioID == uuid.Nil {
		return errors.New("holding must belong to a portfolio")
	}
	if h.Quantity.IsNegative() {
		return errors.New("holding quantity cannot be negative")
	}
	if h.CurrentPrice.IsNegative() || h.CostBasis.IsNegative() {
		return errors.New("holding prices cannot be negative")
	}
	if h.BookCost.IsNegative() {
		return errors.New("holding book cost cannot be negative")
	}
	if h.Quantity.IsZero() && !h.BookCost.IsZero() {
		return errors.New("closed holding cannot carry a book cost")
	}
	if !h.TotalValue.Equal(h.MarketValue()) {
		return errors.New("holding total value must equal quantity times current price")
	}
	return nil
}

// Portfolio aggregates all holdings of an owner
type Portfolio struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	TotalValue     decimal.Decimal
	InvestedAmount decimal.Decimal
	GrowthPct      decimal.Decimal // derived, see GrowthPct
	LastUpdated    time.Time
	Version        int64
}

func (p *Portfolio) Ref() EntityRef        { return EntityRef{Kind: EntityPortfolio, ID: p.ID} }
func (p *Portfolio) Owner() uuid.UUID      { return p.OwnerID }
func (p *Portfolio) CurrentVersion() int64 { return p.Version }

// Recompute refreshes the derived growth percentage from the stored totals
func (p *Portfolio) Recompute() {
	p.GrowthPct = GrowthPct(p.TotalValue, p.InvestedAmount)
}

// GrowthPct returns (total - invested) / invested * 100, or zero when nothing is invested
func GrowthPct(totalValue, investedAmount decimal.Decimal) decimal.Decimal {
	if !investedAmount.IsPositive() {
		return decimal.Zero
	}
	return totalValue.Sub(investedAmount).Div(investedAmount).Mul(hundred)
}

// Validate ensures the portfolio adheres to domain rules
func (p *Portfolio) Validate() error {
	if p.OwnerID == uuid.Nil {
		return errors.New("portfolio owner cannot be empty")
	}
	if p.InvestedAmount.IsNegative() {
		return errors.New("portfolio invested amount cannot be negative")
	}
	if p.TotalValue.IsNegative() {
		return errors.New("portfolio total value cannot be negative")
	}
	return nil
}
