package wire

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/usecase/ledger"
)

func TestParseParams(t *testing.T) {
	walletID := uuid.New()
	otherID := uuid.New()

	tests := []struct {
		name    string
		op      ledger.Operation
		fields  map[string]any
		want    ledger.Params
		wantErr bool
		errMsg  string
	}{
		{
			name: "debit with string amount",
			op:   ledger.OpDebit,
			fields: map[string]any{
				"wallet_id":    walletID.String(),
				"amount":       "500.00",
				"description":  " Pay bill ",
				"counterparty": "KPLC",
			},
			want: ledger.Debit{
				WalletID:     walletID,
				Amount:       decimal.RequireFromString("500"),
				Description:  "Pay bill",
				Counterparty: "KPLC",
			},
		},
		{
			name: "credit with numeric amount",
			op:   ledger.OpCredit,
			fields: map[string]any{
				"wallet_id": walletID.String(),
				"amount":    float64(12.5),
			},
			want: ledger.Credit{WalletID: walletID, Amount: decimal.RequireFromString("12.5")},
		},
		{
			name: "transfer",
			op:   ledger.OpTransfer,
			fields: map[string]any{
				"from_wallet_id": walletID.String(),
				"to_wallet_id":   otherID.String(),
				"amount":         "10",
			},
			want: ledger.Transfer{FromWalletID: walletID, ToWalletID: otherID, Amount: decimal.NewFromInt(10)},
		},
		{
			name:   "file tax return",
			op:     ledger.OpFileTaxReturn,
			fields: map[string]any{"period": "2025"},
			want:   ledger.FileTaxReturn{Period: "2025"},
		},
		{
			name:    "NaN amount",
			op:      ledger.OpDebit,
			fields:  map[string]any{"wallet_id": walletID.String(), "amount": math.NaN()},
			wantErr: true,
			errMsg:  "must be a finite number",
		},
		{
			name:    "infinite amount",
			op:      ledger.OpCredit,
			fields:  map[string]any{"wallet_id": walletID.String(), "amount": math.Inf(1)},
			wantErr: true,
			errMsg:  "must be a finite number",
		},
		{
			name:    "non decimal string",
			op:      ledger.OpDebit,
			fields:  map[string]any{"wallet_id": walletID.String(), "amount": "ten"},
			wantErr: true,
			errMsg:  "invalid amount",
		},
		{
			name:    "malformed wallet id",
			op:      ledger.OpDebit,
			fields:  map[string]any{"wallet_id": "not-a-uuid", "amount": "1"},
			wantErr: true,
			errMsg:  "invalid wallet_id",
		},
		{
			name:    "symbol of wrong type",
			op:      ledger.OpMarkPrice,
			fields:  map[string]any{"symbol": 42.0, "price": "10"},
			wantErr: true,
			errMsg:  "expected a string",
		},
		{
			name:    "fractional term",
			op:      ledger.OpOriginateLoan,
			fields:  map[string]any{"principal": "1000", "term_months": 1.5},
			wantErr: true,
			errMsg:  "expected a whole number",
		},
		{
			name:    "unknown operation",
			op:      ledger.Operation("mint"),
			fields:  map[string]any{},
			wantErr: true,
			errMsg:  "unknown operation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.op, tt.fields)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.op, got.Operation())
			assertParamsEqual(t, tt.want, got)
		})
	}
}

// assertParamsEqual compares decimals by value; decimal.Decimal is not comparable with ==
func assertParamsEqual(t *testing.T, want, got ledger.Params) {
	t.Helper()
	switch w := want.(type) {
	case ledger.Debit:
		g := got.(ledger.Debit)
		assert.Equal(t, w.WalletID, g.WalletID)
		assert.True(t, w.Amount.Equal(g.Amount), "amount: want %s, got %s", w.Amount, g.Amount)
		assert.Equal(t, w.Description, g.Description)
		assert.Equal(t, w.Counterparty, g.Counterparty)
	case ledger.Credit:
		g := got.(ledger.Credit)
		assert.Equal(t, w.WalletID, g.WalletID)
		assert.True(t, w.Amount.Equal(g.Amount), "amount: want %s, got %s", w.Amount, g.Amount)
	case ledger.Transfer:
		g := got.(ledger.Transfer)
		assert.Equal(t, w.FromWalletID, g.FromWalletID)
		assert.Equal(t, w.ToWalletID, g.ToWalletID)
		assert.True(t, w.Amount.Equal(g.Amount))
	default:
		assert.Equal(t, want, got)
	}
}

func TestParseParams_OriginateLoan(t *testing.T) {
	walletID := uuid.New()

	got, err := ParseParams(ledger.OpOriginateLoan, map[string]any{
		"principal":     "1000",
		"term_months":   float64(12),
		"interest_rate": "0.1",
		"purpose":       "school fees",
		"applicant": map[string]any{
			"monthly_income": "5000",
			"total_debt":     "500",
			"credit_score":   float64(760),
		},
		"disburse_to_wallet_id": walletID.String(),
	})
	require.NoError(t, err)

	loan := got.(ledger.OriginateLoan)
	assert.True(t, loan.Principal.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 12, loan.TermMonths)
	require.NotNil(t, loan.InterestRate)
	assert.Equal(t, "0.1", loan.InterestRate.String())
	assert.Equal(t, "school fees", loan.Purpose)
	assert.Equal(t, 760, loan.Applicant.CreditScore)
	assert.Equal(t, "5000", loan.Applicant.MonthlyIncome.String())
	require.NotNil(t, loan.DisburseToWalletID)
	assert.Equal(t, walletID, *loan.DisburseToWalletID)

	t.Run("optional fields stay nil", func(t *testing.T) {
		got, err := ParseParams(ledger.OpOriginateLoan, map[string]any{"principal": "1000", "term_months": 12.0})
		require.NoError(t, err)

		loan := got.(ledger.OriginateLoan)
		assert.Nil(t, loan.InterestRate)
		assert.Nil(t, loan.DisburseToWalletID)
	})

	t.Run("term beyond int range", func(t *testing.T) {
		_, err := ParseParams(ledger.OpOriginateLoan, map[string]any{
			"principal":   "1000",
			"term_months": "1125899906842624000000",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "out of range")
	})

	t.Run("numeric term beyond int32", func(t *testing.T) {
		_, err := ParseParams(ledger.OpOriginateLoan, map[string]any{
			"principal":   "1000",
			"term_months": float64(1 << 50),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "invalid term_months: whole number out of range")
	})

	t.Run("bad applicant", func(t *testing.T) {
		_, err := ParseParams(ledger.OpOriginateLoan, map[string]any{
			"principal":   "1000",
			"term_months": 12.0,
			"applicant":   map[string]any{"credit_score": "very good"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid credit_score")
	})
}

func TestParseOperationAndRef(t *testing.T) {
	op, err := ParseOperation("sell_asset")
	require.NoError(t, err)
	assert.Equal(t, ledger.OpSellAsset, op)

	_, err = ParseOperation("short_asset")
	assert.ErrorIs(t, err, domain.ErrValidation)

	id := uuid.New()
	ref, err := ParseRef("loan", id.String())
	require.NoError(t, err)
	assert.Equal(t, domain.EntityRef{Kind: domain.EntityLoan, ID: id}, ref)

	_, err = ParseRef("account", id.String())
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ParseRef("wallet", "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid id format")
}

func TestResultToMap_IsStructCompatible(t *testing.T) {
	ownerID := uuid.New()
	walletID := uuid.New()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	res := &ledger.Result{
		Operation: ledger.OpDebit,
		State: &domain.Wallet{
			ID:          walletID,
			OwnerID:     ownerID,
			Balance:     decimal.RequireFromString("0.50"),
			Currency:    "KES",
			LastUpdated: now,
			Version:     2,
		},
		Events: []*domain.LedgerEvent{{
			ID:               uuid.New(),
			EntityID:         walletID,
			EntityKind:       domain.EntityWallet,
			OwnerID:          ownerID,
			Kind:             domain.EventDebit,
			Operation:        "debit",
			Amount:           decimal.RequireFromString("499.5"),
			ResultingBalance: decimal.RequireFromString("0.5"),
			Timestamp:        now,
			Sequence:         7,
			IdempotencyKey:   ownerID.String() + ":k1",
			Details:          map[string]string{"description": "Pay bill"},
		}},
	}

	s, err := structpb.NewStruct(ResultToMap(res))
	require.NoError(t, err)

	m := s.AsMap()
	state := m["state"].(map[string]any)
	assert.Equal(t, "0.5", state["balance"])
	assert.Equal(t, "wallet", state["kind"])
	assert.Equal(t, float64(2), state["version"])

	events := m["events"].([]any)
	require.Len(t, events, 1)
	ev := events[0].(map[string]any)
	assert.Equal(t, "499.5", ev["amount"])
	assert.Equal(t, float64(7), ev["sequence"])
	assert.Equal(t, "2025-03-01T10:00:00Z", ev["timestamp"])
	assert.Equal(t, "Pay bill", ev["details"].(map[string]any)["description"])
	assert.Equal(t, false, m["replayed"])
}
