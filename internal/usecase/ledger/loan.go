package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/rules"
	"github.com/finverse/ledger-backend/internal/usecase/schedule"
)

// originate underwrites the application and books the loan.
// Declined applications are persisted with status declined and no balance;
// that is a successful outcome, not an error.
func (u *unit) originate(p OriginateLoan) (domain.Entity, error) {
	decision := rules.Underwrite(p.Applicant)

	loan := &domain.Loan{
		ID:             uuid.New(),
		OwnerID:        u.req.OwnerID,
		Principal:      p.Principal,
		TermMonths:     p.TermMonths,
		LoanType:       p.LoanType,
		Purpose:        p.Purpose,
		CreditScore:    p.Applicant.CreditScore,
		DecisionReason: decision.Reason,
		CreatedAt:      u.now,
		LastUpdated:    u.now,
	}

	if decision.Approved {
		loan.Status = domain.LoanStatusActive
		loan.InterestRate = decision.Rate
		if p.InterestRate != nil {
			loan.InterestRate = *p.InterestRate
			loan.DecisionReason = fmt.Sprintf("%s; rate set to %s by request", decision.Reason, p.InterestRate.String())
		}
		loan.RemainingBalance = loan.TotalOwed()
		loan.DueDate = u.now.AddDate(0, p.TermMonths, 0)

		plan, err := schedule.Build(loan.RemainingBalance, p.TermMonths, u.now)
		if err != nil {
			return nil, domain.NewValidationError(err.Error())
		}
		loan.MonthlyInstallment = plan[0].Amount
	} else {
		loan.Status = domain.LoanStatusDeclined
		loan.InterestRate = decimal.Zero
		loan.RemainingBalance = decimal.Zero
	}

	if err := u.tx.SaveLoan(u.ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	details := map[string]string{
		detailStatus:     string(loan.Status),
		detailRate:       loan.InterestRate.String(),
		detailReason:     loan.DecisionReason,
		detailTermMonths: fmt.Sprintf("%d", loan.TermMonths),
	}
	if err := u.emit(loan, domain.EventOrigination, loan.Principal, loan.RemainingBalance, details); err != nil {
		return nil, err
	}

	if decision.Approved && p.DisburseToWalletID != nil {
		w, err := u.loadWallet(*p.DisburseToWalletID)
		if err != nil {
			return nil, err
		}
		credit := map[string]string{
			detailDescription:  "loan disbursement",
			detailCounterparty: "lender",
			detailLoan:         loan.ID.String(),
		}
		if err := u.deposit(w, loan.Principal, domain.EventCredit, credit); err != nil {
			return nil, err
		}
	}

	return loan, nil
}

// repay reduces the remaining balance; reaching zero completes the loan
func (u *unit) repay(p ApplyLoanRepayment) (domain.Entity, error) {
	loan, err := u.tx.GetLoan(u.ctx, p.LoanID)
	if err != nil {
		return nil, err
	}
	if err := u.owned(loan); err != nil {
		return nil, err
	}
	if err := rules.CanRepay(loan, p.Amount); err != nil {
		return nil, err
	}

	// The funding wallet is validated before anything is written
	var funding *domain.Wallet
	if p.FundingWalletID != nil {
		funding, err = u.loadWallet(*p.FundingWalletID)
		if err != nil {
			return nil, err
		}
		if err := rules.CanDebit(funding, p.Amount); err != nil {
			return nil, err
		}
	}

	loan.RemainingBalance = loan.RemainingBalance.Sub(p.Amount)
	loan.TotalRepaid = loan.TotalRepaid.Add(p.Amount)
	if loan.RemainingBalance.IsZero() {
		loan.Status = domain.LoanStatusCompleted
	}
	loan.LastUpdated = u.now

	if err := u.tx.SaveLoan(u.ctx, loan); err != nil {
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}
	details := map[string]string{
		detailStatus:      string(loan.Status),
		detailTotalRepaid: loan.TotalRepaid.String(),
	}
	if funding != nil {
		details[detailWallet] = funding.ID.String()
	}
	if err := u.emit(loan, domain.EventRepayment, p.Amount, loan.RemainingBalance, details); err != nil {
		return nil, err
	}

	if funding != nil {
		debit := map[string]string{
			detailDescription:  "loan repayment",
			detailCounterparty: "lender",
			detailLoan:         loan.ID.String(),
		}
		if err := u.withdraw(funding, p.Amount, domain.EventDebit, debit); err != nil {
			return nil, err
		}
	}

	return loan, nil
}
