package rules

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/finverse/ledger-backend/internal/domain"
)

func TestFirst_StopsAtFirstViolation(t *testing.T) {
	var evaluated []string
	mk := func(name string, err error) Rule[int] {
		return Rule[int]{Name: name, Check: func(int) error {
			evaluated = append(evaluated, name)
			return err
		}}
	}

	err := First(1, mk("a", nil), mk("b", errors.New("b failed")), mk("c", errors.New("c failed")))

	assert.EqualError(t, err, "b failed")
	assert.Equal(t, []string{"a", "b"}, evaluated)
}

func TestFirst_NoRulesIsValid(t *testing.T) {
	assert.NoError(t, First[int](42))
}

func TestDebitRules_Order(t *testing.T) {
	assert.Equal(t, []string{"wallet_not_archived", "wallet_not_frozen", "sufficient_balance"}, Names(DebitRules))
}

func TestValidAmount(t *testing.T) {
	ref := domain.EntityRef{Kind: domain.EntityWallet, ID: uuid.New()}

	tests := []struct {
		name    string
		amount  decimal.Decimal
		wantErr bool
	}{
		{"Positive amount is valid", decimal.NewFromInt(1), false},
		{"Fractional amount is valid", decimal.RequireFromString("0.01"), false},
		{"Zero is rejected", decimal.Zero, true},
		{"Negative is rejected", decimal.NewFromInt(-5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidAmount(ref, tt.amount)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidAmount)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanDebit(t *testing.T) {
	tests := []struct {
		name    string
		wallet  domain.Wallet
		amount  int64
		wantErr error
	}{
		{
			name:   "Exact balance can be debited",
			wallet: domain.Wallet{ID: uuid.New(), Balance: decimal.NewFromInt(500)},
			amount: 500,
		},
		{
			name:    "Overdraft is rejected",
			wallet:  domain.Wallet{ID: uuid.New(), Balance: decimal.Zero},
			amount:  1,
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name:    "Frozen wallet is rejected before balance check",
			wallet:  domain.Wallet{ID: uuid.New(), Balance: decimal.Zero, Frozen: true},
			amount:  1,
			wantErr: domain.ErrFrozenEntity,
		},
		{
			name:    "Archived wallet is rejected",
			wallet:  domain.Wallet{ID: uuid.New(), Balance: decimal.NewFromInt(10), Archived: true},
			amount:  1,
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanDebit(&tt.wallet, decimal.NewFromInt(tt.amount))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCanCredit_FrozenWalletAcceptsCredits(t *testing.T) {
	w := &domain.Wallet{ID: uuid.New(), Frozen: true}

	assert.NoError(t, CanCredit(w, decimal.NewFromInt(100)))
}

func TestSameCurrency(t *testing.T) {
	w := &domain.Wallet{ID: uuid.New(), Currency: "USD"}

	err := First(WalletCheck{Wallet: w, Amount: decimal.NewFromInt(1)}, SameCurrency("KES"))

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "currency mismatch")
}

func TestCanSell(t *testing.T) {
	holding := &domain.AssetHolding{
		ID:           uuid.New(),
		Symbol:       "AAPL",
		Quantity:     decimal.NewFromInt(10),
		CurrentPrice: decimal.NewFromInt(12),
	}

	assert.NoError(t, CanSell(holding, decimal.NewFromInt(10)))

	err := CanSell(holding, decimal.RequireFromString("10.0001"))
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)

	var le *domain.LedgerError
	assert.True(t, errors.As(err, &le))
	assert.Equal(t, holding.Ref(), le.Entity)
}

func TestCanBuy_UnpricedHolding(t *testing.T) {
	err := CanBuy(&domain.AssetHolding{Symbol: "NEW"})

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "no market price known for NEW")
}

func TestCanRepay(t *testing.T) {
	active := &domain.Loan{ID: uuid.New(), Status: domain.LoanStatusActive, RemainingBalance: decimal.NewFromInt(100)}
	completed := &domain.Loan{ID: uuid.New(), Status: domain.LoanStatusCompleted}

	assert.NoError(t, CanRepay(active, decimal.NewFromInt(100)))
	assert.ErrorIs(t, CanRepay(active, decimal.NewFromInt(101)), domain.ErrInsufficientFunds)
	assert.ErrorIs(t, CanRepay(completed, decimal.NewFromInt(1)), domain.ErrLoanNotActive)
}

func TestUnderwrite(t *testing.T) {
	tests := []struct {
		name         string
		applicant    Applicant
		wantApproved bool
		wantRate     string
	}{
		{
			name:         "Score below minimum is declined",
			applicant:    Applicant{MonthlyIncome: decimal.NewFromInt(5000), CreditScore: 599},
			wantApproved: false,
			wantRate:     "0",
		},
		{
			name:         "Prime applicant gets base rate",
			applicant:    Applicant{MonthlyIncome: decimal.NewFromInt(5000), TotalDebt: decimal.NewFromInt(500), CreditScore: 760},
			wantApproved: true,
			wantRate:     "0.05",
		},
		{
			name:         "Score and debt load add pricing steps",
			applicant:    Applicant{MonthlyIncome: decimal.NewFromInt(1000), TotalDebt: decimal.NewFromInt(300), CreditScore: 700},
			wantApproved: true,
			wantRate:     "0.065",
		},
		{
			name:         "Partial steps are not charged",
			applicant:    Applicant{MonthlyIncome: decimal.NewFromInt(1000), TotalDebt: decimal.NewFromInt(240), CreditScore: 739},
			wantApproved: true,
			wantRate:     "0.05",
		},
		{
			name:         "Heavy debt load",
			applicant:    Applicant{MonthlyIncome: decimal.NewFromInt(50000), TotalDebt: decimal.NewFromInt(200000), CreditScore: 720},
			wantApproved: true,
			wantRate:     "0.245",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Underwrite(tt.applicant)
			assert.Equal(t, tt.wantApproved, d.Approved)
			assert.True(t, decimal.RequireFromString(tt.wantRate).Equal(d.Rate), "expected rate %s, got %s", tt.wantRate, d.Rate)
			assert.NotEmpty(t, d.Reason)
		})
	}
}

func TestUnderwrite_IsDeterministic(t *testing.T) {
	a := Applicant{MonthlyIncome: decimal.NewFromInt(3000), TotalDebt: decimal.NewFromInt(1500), CreditScore: 655}

	assert.Equal(t, Underwrite(a), Underwrite(a))
}

func TestPeriodOpen(t *testing.T) {
	pending := &domain.TaxLedger{ID: uuid.New(), Period: "2025", Status: domain.TaxStatusPending}
	filed := &domain.TaxLedger{ID: uuid.New(), Period: "2024", Status: domain.TaxStatusFiled}

	assert.NoError(t, CanRecordTaxEntry(pending))
	assert.ErrorIs(t, CanRecordTaxEntry(filed), domain.ErrTaxPeriodClosed)
	assert.ErrorIs(t, CanFile(filed), domain.ErrTaxPeriodClosed)
}
