package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/rules"
)

// position is the portfolio and one holding read together in a unit
type position struct {
	portfolio *domain.Portfolio
	holding   *domain.AssetHolding
	value     decimal.Decimal // holding value already counted in the portfolio total
}

// loadPosition reads the owner's portfolio and holding. A missing holding is
// returned as a zero-quantity position when allowMissing is set.
func (u *unit) loadPosition(symbol string, allowMissing bool) (*position, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	portfolio, err := u.tx.GetPortfolio(u.ctx, u.req.OwnerID)
	if err != nil {
		return nil, err
	}

	holding, err := u.tx.GetHolding(u.ctx, u.req.OwnerID, symbol)
	switch {
	case err == nil:
	case allowMissing && errors.Is(err, domain.ErrEntityNotFound):
		holding = &domain.AssetHolding{
			ID:          uuid.New(),
			OwnerID:     u.req.OwnerID,
			PortfolioID: portfolio.ID,
			Symbol:      symbol,
		}
	default:
		return nil, err
	}

	return &position{portfolio: portfolio, holding: holding, value: holding.TotalValue}, nil
}

// reprice moves the holding to price and carries the value change into the
// portfolio total. It returns the change.
func (pos *position) reprice(price decimal.Decimal) decimal.Decimal {
	h := pos.holding
	h.CurrentPrice = price
	h.Revalue()

	change := h.TotalValue.Sub(pos.value)
	pos.portfolio.TotalValue = pos.portfolio.TotalValue.Add(change)
	pos.portfolio.Recompute()
	pos.value = h.TotalValue
	return change
}

// executionPrice applies the price supplied with a trade. A move in the
// holding's value is recorded as a revaluation ahead of the trade itself.
func (u *unit) executionPrice(pos *position, price decimal.Decimal) error {
	if !price.IsPositive() || price.Equal(pos.holding.CurrentPrice) {
		return nil
	}
	change := pos.reprice(price)
	if change.IsZero() {
		return nil
	}
	return u.emitRevaluation(pos, change)
}

// settle writes the holding and portfolio back. The portfolio total moves by
// the holding's value change so it stays the sum of its holdings.
func (u *unit) settle(pos *position) error {
	h := pos.holding
	h.Revalue()
	h.LastUpdated = u.now

	p := pos.portfolio
	p.TotalValue = p.TotalValue.Add(h.TotalValue.Sub(pos.value))
	pos.value = h.TotalValue
	if p.TotalValue.IsNegative() {
		p.TotalValue = decimal.Zero
	}
	if p.InvestedAmount.IsNegative() {
		p.InvestedAmount = decimal.Zero
	}
	p.Recompute()
	p.LastUpdated = u.now

	if err := u.tx.SaveHolding(u.ctx, h); err != nil {
		return fmt.Errorf("failed to save holding: %w", err)
	}
	if err := u.tx.SavePortfolio(u.ctx, p); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

// emitPosition appends the portfolio event first, then the holding event
func (u *unit) emitPosition(pos *position, kind domain.EventKind, amount decimal.Decimal, details map[string]string) error {
	p, h := pos.portfolio, pos.holding

	portfolioDetails := map[string]string{
		detailInvested: p.InvestedAmount.String(),
		detailGrowth:   p.GrowthPct.StringFixed(4),
	}
	holdingDetails := map[string]string{
		detailTotalValue: h.TotalValue.String(),
	}
	for k, v := range details {
		portfolioDetails[k] = v
		holdingDetails[k] = v
	}
	portfolioDetails[detailSymbol] = h.Symbol
	holdingDetails[detailSymbol] = h.Symbol

	if err := u.emit(p, kind, amount, p.TotalValue, portfolioDetails); err != nil {
		return err
	}
	return u.emit(h, kind, amount, h.Quantity, holdingDetails)
}

func (u *unit) emitRevaluation(pos *position, change decimal.Decimal) error {
	details := map[string]string{
		detailPrice:       pos.holding.CurrentPrice.String(),
		detailTotalValue:  pos.holding.TotalValue.String(),
		detailValueChange: change.String(),
	}
	return u.emitPosition(pos, domain.EventRevaluation, change, details)
}

// buy invests usdAmount at the holding's current price.
// Logic:
//   - quantityDelta = usdAmount / price, kept at QuantityPrecision
//   - the amount paid is added to the holding's book cost and the invested amount
//   - cost basis per unit is book cost / quantity, the weighted average of all lots
//   - the portfolio total moves by the holding's value change, which is
//     usdAmount at ValuePrecision
func (u *unit) buy(p BuyAsset) (domain.Entity, error) {
	pos, err := u.loadPosition(p.Symbol, true)
	if err != nil {
		return nil, err
	}

	h := pos.holding
	if p.Price.IsPositive() && h.CurrentPrice.IsZero() {
		h.CurrentPrice = p.Price
	}
	if err := rules.CanBuy(h); err != nil {
		return nil, err
	}
	if err := u.executionPrice(pos, p.Price); err != nil {
		return nil, err
	}

	quantityDelta := p.USDAmount.DivRound(h.CurrentPrice, domain.QuantityPrecision)
	if !quantityDelta.IsPositive() {
		return nil, domain.NewValidationError(fmt.Sprintf("usd_amount %s buys no units of %s at %s", p.USDAmount, h.Symbol, h.CurrentPrice))
	}
	h.Quantity = h.Quantity.Add(quantityDelta)
	h.BookCost = h.BookCost.Add(p.USDAmount)
	h.CostBasis = h.BookCost.DivRound(h.Quantity, domain.QuantityPrecision)

	pos.portfolio.InvestedAmount = pos.portfolio.InvestedAmount.Add(p.USDAmount)
	if err := u.settle(pos); err != nil {
		return nil, err
	}

	details := map[string]string{
		detailSide:     "buy",
		detailQuantity: quantityDelta.String(),
		detailPrice:    h.CurrentPrice.String(),
	}
	if err := u.emitPosition(pos, domain.EventTrade, p.USDAmount, details); err != nil {
		return nil, err
	}
	return pos.portfolio, nil
}

// sell realizes part or all of a position.
// The invested amount drops by the cost of the units sold, not by the
// proceeds: costRemoved = costBasis * oldQuantity * (quantityDelta / oldQuantity),
// with the booked cost standing for costBasis * oldQuantity. Closing the
// position removes the whole booked cost.
func (u *unit) sell(p SellAsset) (domain.Entity, error) {
	pos, err := u.loadPosition(p.Symbol, false)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) && isHoldingLookup(err) {
			requested := p.Quantity
			if requested.IsZero() {
				requested = p.USDAmount
			}
			return nil, domain.NewInsufficientHoldingsError(holdingRef(), requested, decimal.Zero)
		}
		return nil, err
	}

	h := pos.holding
	if p.Price.IsPositive() && h.CurrentPrice.IsZero() {
		h.CurrentPrice = p.Price
	}
	quantityDelta := p.Quantity
	if quantityDelta.IsZero() {
		if err := rules.CanBuy(h); err != nil {
			return nil, err
		}
		price := h.CurrentPrice
		if p.Price.IsPositive() {
			price = p.Price
		}
		quantityDelta = p.USDAmount.DivRound(price, domain.QuantityPrecision)
	}
	if err := rules.CanSell(h, quantityDelta); err != nil {
		return nil, err
	}
	if err := u.executionPrice(pos, p.Price); err != nil {
		return nil, err
	}

	oldQuantity := h.Quantity
	costRemoved := h.BookCost
	if quantityDelta.LessThan(oldQuantity) {
		costRemoved = h.BookCost.Mul(quantityDelta).DivRound(oldQuantity, domain.ValuePrecision)
	}

	h.Quantity = oldQuantity.Sub(quantityDelta)
	h.BookCost = h.BookCost.Sub(costRemoved)
	if h.Quantity.IsZero() {
		h.CostBasis = decimal.Zero
	} else {
		h.CostBasis = h.BookCost.DivRound(h.Quantity, domain.QuantityPrecision)
	}

	valueBefore := pos.value
	pos.portfolio.InvestedAmount = pos.portfolio.InvestedAmount.Sub(costRemoved)
	if err := u.settle(pos); err != nil {
		return nil, err
	}
	proceeds := valueBefore.Sub(h.TotalValue)

	details := map[string]string{
		detailSide:        "sell",
		detailQuantity:    quantityDelta.String(),
		detailPrice:       h.CurrentPrice.String(),
		detailCostRemoved: costRemoved.String(),
		detailRealized:    proceeds.Sub(costRemoved).String(),
	}
	if err := u.emitPosition(pos, domain.EventTrade, proceeds, details); err != nil {
		return nil, err
	}
	return pos.portfolio, nil
}

// markPrice revalues an existing holding and carries the change into the portfolio
func (u *unit) markPrice(p MarkPrice) (domain.Entity, error) {
	pos, err := u.loadPosition(p.Symbol, false)
	if err != nil {
		return nil, err
	}
	change := pos.reprice(p.Price)
	if err := u.settle(pos); err != nil {
		return nil, err
	}
	if err := u.emitRevaluation(pos, change); err != nil {
		return nil, err
	}
	return pos.portfolio, nil
}

// isHoldingLookup reports whether a not-found error came from the holding read
func isHoldingLookup(err error) bool {
	var le *domain.LedgerError
	return errors.As(err, &le) && le.Entity.Kind == domain.EntityHolding
}
