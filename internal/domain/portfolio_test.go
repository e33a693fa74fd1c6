package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestGrowthPct(t *testing.T) {
	tests := []struct {
		name     string
		total    decimal.Decimal
		invested decimal.Decimal
		want     decimal.Decimal
	}{
		{"15 percent gain", decimal.NewFromInt(1150), decimal.NewFromInt(1000), decimal.NewFromInt(15)},
		{"Loss is negative", decimal.NewFromInt(900), decimal.NewFromInt(1000), decimal.NewFromInt(-10)},
		{"Nothing invested yields zero", decimal.NewFromInt(50), decimal.Zero, decimal.Zero},
		{"Flat position yields zero", decimal.NewFromInt(100), decimal.NewFromInt(100), decimal.Zero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GrowthPct(tt.total, tt.invested)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestPortfolio_Recompute(t *testing.T) {
	p := &Portfolio{
		OwnerID:        uuid.New(),
		TotalValue:     decimal.NewFromInt(1150),
		InvestedAmount: decimal.NewFromInt(1000),
	}

	p.Recompute()

	got, _ := p.GrowthPct.Float64()
	assert.InDelta(t, 15.0, got, 1e-9)
}

func TestAssetHolding_Validate(t *testing.T) {
	portfolioID := uuid.New()

	tests := []struct {
		name    string
		holding AssetHolding
		wantErr bool
		errMsg  string
	}{
		{
			name: "Consistent holding should pass",
			holding: AssetHolding{
				PortfolioID:  portfolioID,
				Symbol:       "AAPL",
				Quantity:     decimal.NewFromInt(10),
				CurrentPrice: decimal.NewFromInt(12),
				TotalValue:   decimal.NewFromInt(120),
			},
			wantErr: false,
		},
		{
			name: "Stale total value should fail",
			holding: AssetHolding{
				PortfolioID:  portfolioID,
				Symbol:       "AAPL",
				Quantity:     decimal.NewFromInt(10),
				CurrentPrice: decimal.NewFromInt(12),
				TotalValue:   decimal.NewFromInt(100),
			},
			wantErr: true,
			errMsg:  "holding total value must equal quantity times current price",
		},
		{
			name: "Negative quantity should fail",
			holding: AssetHolding{
				PortfolioID: portfolioID,
				Symbol:      "AAPL",
				Quantity:    decimal.NewFromInt(-1),
			},
			wantErr: true,
			errMsg:  "holding quantity cannot be negative",
		},
		{
			name: "Orphan holding should fail",
			holding: AssetHolding{
				Symbol: "AAPL",
			},
			wantErr: true,
			errMsg:  "holding must belong to a portfolio",
		},
		{
			name: "Value rounded to money scale should pass",
			holding: AssetHolding{
				PortfolioID:  portfolioID,
				Symbol:       "AAPL",
				Quantity:     decimal.RequireFromString("33.333333333333333333"),
				BookCost:     decimal.NewFromInt(100),
				CurrentPrice: decimal.NewFromInt(3),
				TotalValue:   decimal.NewFromInt(100),
			},
			wantErr: false,
		},
		{
			name: "Negative book cost should fail",
			holding: AssetHolding{
				PortfolioID: portfolioID,
				Symbol:      "AAPL",
				Quantity:    decimal.NewFromInt(1),
				BookCost:    decimal.NewFromInt(-1),
			},
			wantErr: true,
			errMsg:  "holding book cost cannot be negative",
		},
		{
			name: "Closed holding with leftover cost should fail",
			holding: AssetHolding{
				PortfolioID: portfolioID,
				Symbol:      "AAPL",
				BookCost:    decimal.RequireFromString("0.0000000000000001"),
			},
			wantErr: true,
			errMsg:  "closed holding cannot carry a book cost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.holding.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssetHolding_Revalue(t *testing.T) {
	h := &AssetHolding{Quantity: decimal.NewFromInt(6), CurrentPrice: decimal.NewFromInt(12)}

	h.Revalue()

	assert.True(t, decimal.NewFromInt(72).Equal(h.TotalValue))
}

func TestAssetHolding_MarketValueRoundsToValuePrecision(t *testing.T) {
	h := &AssetHolding{Quantity: decimal.RequireFromString("7.142857142857142857"), CurrentPrice: decimal.NewFromInt(7)}

	assert.Equal(t, "50", h.MarketValue().String())
}
