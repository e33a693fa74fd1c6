package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finverse/ledger-backend/internal/adapter/repository/memory"
	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/rules"
)

var primeApplicant = rules.Applicant{
	MonthlyIncome: dec("5000"),
	TotalDebt:     dec("500"),
	CreditScore:   760,
}

func loanState(t *testing.T, store *memory.Store, id uuid.UUID) *domain.Loan {
	t.Helper()
	e, err := store.GetState(context.Background(), domain.EntityRef{Kind: domain.EntityLoan, ID: id})
	require.NoError(t, err)
	return e.(*domain.Loan)
}

func originate(t *testing.T, engine *Engine, owner uuid.UUID, params OriginateLoan) *domain.Loan {
	t.Helper()
	res, err := engine.Apply(context.Background(), Request{OwnerID: owner, Params: params})
	require.NoError(t, err)
	return res.State.(*domain.Loan)
}

func TestOriginateLoan_Approved(t *testing.T) {
	store := memory.NewStore()
	engine := newTestEngine(store)
	owner := uuid.New()

	loan := originate(t, engine, owner, OriginateLoan{
		Principal:  dec("1000"),
		TermMonths: 12,
		LoanType:   "personal",
		Purpose:    "school fees",
		Applicant:  primeApplicant,
	})

	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	assertDecimal(t, "0.05", loan.InterestRate)
	assertDecimal(t, "1050", loan.RemainingBalance)
	assertDecimal(t, "87.5", loan.MonthlyInstallment)
	assert.Equal(t, loan.CreatedAt.AddDate(0, 12, 0), loan.DueDate)
	assert.Equal(t, 1, historyCount(t, store, loan.Ref()))
}

func TestOriginateLoan_RequestedRateOverridesUnderwriting(t *testing.T) {
	rate := dec("0.1")
	loan := originate(t, newTestEngine(memory.NewStore()), uuid.New(), OriginateLoan{
		Principal:    dec("1000"),
		TermMonths:   10,
		InterestRate: &rate,
		Applicant:    primeApplicant,
	})

	assertDecimal(t, "0.1", loan.InterestRate)
	assertDecimal(t, "1100", loan.RemainingBalance)
	assert.Contains(t, loan.DecisionReason, "rate set to 0.1")
}

func TestOriginateLoan_DeclinedIsPersisted(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := newTestEngine(store)
	owner := uuid.New()
	wallet := seedWallet(t, store, owner, "0", "KES")

	res, err := engine.Apply(ctx, Request{OwnerID: owner, Params: OriginateLoan{
		Principal:          dec("1000"),
		TermMonths:         12,
		Applicant:          rules.Applicant{MonthlyIncome: dec("5000"), CreditScore: 599},
		DisburseToWalletID: &wallet.ID,
	}})

	require.NoError(t, err)
	loan := res.State.(*domain.Loan)
	assert.Equal(t, domain.LoanStatusDeclined, loan.Status)
	assert.True(t, loan.RemainingBalance.IsZero())
	require.Len(t, res.Events, 1)
	assert.Equal(t, domain.EventOrigination, res.Events[0].Kind)
	assert.Equal(t, "declined", res.Events[0].Details["status"])
	assertDecimal(t, "0", walletState(t, store, wallet.ID).Balance, "declined loans are not disbursed")

	_, err = engine.Apply(ctx, Request{OwnerID: owner, Params: ApplyLoanRepayment{LoanID: loan.ID, Amount: dec("1")}})
	assert.ErrorIs(t, err, domain.ErrLoanNotActive)
}

func TestOriginateLoan_TermBounds(t *testing.T) {
	tests := []struct {
		name    string
		months  int
		wantErr bool
	}{
		{"Longest allowed term", domain.MaxTermMonths, false},
		{"One month past the cap", domain.MaxTermMonths + 1, true},
		{"Huge term", 1 << 50, true},
		{"Negative term", -12, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewStore()
			owner := uuid.New()
			wallet := seedWallet(t, store, owner, "0", "KES")

			res, err := newTestEngine(store).Apply(context.Background(), Request{OwnerID: owner, Params: OriginateLoan{
				Principal:          dec("1000"),
				TermMonths:         tt.months,
				Applicant:          primeApplicant,
				DisburseToWalletID: &wallet.ID,
			}})

			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				assertDecimal(t, "0", walletState(t, store, wallet.ID).Balance)
				assert.Equal(t, 0, historyCount(t, store, wallet.Ref()))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.MaxTermMonths, res.State.(*domain.Loan).TermMonths)
		})
	}
}

func TestOriginateLoan_DisbursesToWallet(t *testing.T) {
	store := memory.NewStore()
	owner := uuid.New()
	wallet := seedWallet(t, store, owner, "20", "KES")

	res, err := newTestEngine(store).Apply(context.Background(), Request{OwnerID: owner, Params: OriginateLoan{
		Principal:          dec("1000"),
		TermMonths:         6,
		Applicant:          primeApplicant,
		DisburseToWalletID: &wallet.ID,
	}})

	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	assert.Equal(t, domain.EntityLoan, res.Events[0].EntityKind)
	assert.Equal(t, domain.EventCredit, res.Events[1].Kind)
	assertDecimal(t, "1020", walletState(t, store, wallet.ID).Balance)
}

func TestRepayLoan_BoundedByRemainingBalance(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := newTestEngine(store)
	owner := uuid.New()
	loan := originate(t, engine, owner, OriginateLoan{Principal: dec("1000"), TermMonths: 12, Applicant: primeApplicant})

	_, err := engine.Apply(ctx, Request{OwnerID: owner, Params: ApplyLoanRepayment{LoanID: loan.ID, Amount: dec("1050.01")}})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assertDecimal(t, "1050", loanState(t, store, loan.ID).RemainingBalance)

	res, err := engine.Apply(ctx, Request{OwnerID: owner, Params: ApplyLoanRepayment{LoanID: loan.ID, Amount: dec("50")}})
	require.NoError(t, err)
	assertDecimal(t, "1000", res.State.(*domain.Loan).RemainingBalance)
	assert.Equal(t, domain.LoanStatusActive, res.State.(*domain.Loan).Status)

	res, err = engine.Apply(ctx, Request{OwnerID: owner, Params: ApplyLoanRepayment{LoanID: loan.ID, Amount: dec("1000")}})
	require.NoError(t, err)
	completed := res.State.(*domain.Loan)
	assert.Equal(t, domain.LoanStatusCompleted, completed.Status)
	assert.True(t, completed.RemainingBalance.IsZero())
	assertDecimal(t, "1050", completed.TotalRepaid)
	assert.Equal(t, "1050", res.Events[0].Details["total_repaid"])
	assert.Equal(t, "completed", res.Events[0].Details["status"])

	_, err = engine.Apply(ctx, Request{OwnerID: owner, Params: ApplyLoanRepayment{LoanID: loan.ID, Amount: dec("1")}})
	assert.ErrorIs(t, err, domain.ErrLoanNotActive)
	assert.Equal(t, 3, historyCount(t, store, loan.Ref()))
}

func TestRepayLoan_FromWallet(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	engine := newTestEngine(store)
	owner := uuid.New()
	wallet := seedWallet(t, store, owner, "100", "KES")
	loan := originate(t, engine, owner, OriginateLoan{Principal: dec("1000"), TermMonths: 12, Applicant: primeApplicant})

	res, err := engine.Apply(ctx, Request{OwnerID: owner, Params: ApplyLoanRepayment{LoanID: loan.ID, Amount: dec("60"), FundingWalletID: &wallet.ID}})
	require.NoError(t, err)

	require.Len(t, res.Events, 2)
	assert.Equal(t, domain.EventRepayment, res.Events[0].Kind)
	assert.Equal(t, domain.EventDebit, res.Events[1].Kind)
	assertDecimal(t, "40", walletState(t, store, wallet.ID).Balance)
	assertDecimal(t, "990", loanState(t, store, loan.ID).RemainingBalance)

	// Wallet cannot cover the next payment: the loan must stay untouched
	_, err = engine.Apply(ctx, Request{OwnerID: owner, Params: ApplyLoanRepayment{LoanID: loan.ID, Amount: dec("60"), FundingWalletID: &wallet.ID}})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assertDecimal(t, "990", loanState(t, store, loan.ID).RemainingBalance)
	assertDecimal(t, "40", walletState(t, store, wallet.ID).Balance)
	assert.Equal(t, 2, historyCount(t, store, loan.Ref()))
}

func TestRepayLoan_OtherOwner(t *testing.T) {
	store := memory.NewStore()
	engine := newTestEngine(store)
	loan := originate(t, engine, uuid.New(), OriginateLoan{Principal: dec("500"), TermMonths: 5, Applicant: primeApplicant})

	_, err := engine.Apply(context.Background(), Request{OwnerID: uuid.New(), Params: ApplyLoanRepayment{LoanID: loan.ID, Amount: dec("10")}})

	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}
