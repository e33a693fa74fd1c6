package rules

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
)

// RepaymentCheck pairs a loan with a proposed payment
type RepaymentCheck struct {
	Loan   *domain.Loan
	Amount decimal.Decimal
}

var LoanActive = Rule[RepaymentCheck]{
	Name: "loan_active",
	Check: func(c RepaymentCheck) error {
		if c.Loan.Status != domain.LoanStatusActive {
			return domain.NewLoanNotActiveError(c.Loan.Ref(), c.Loan.Status, c.Amount)
		}
		return nil
	},
}

// NoOverpayment rejects payments above the remaining balance
var NoOverpayment = Rule[RepaymentCheck]{
	Name: "no_overpayment",
	Check: func(c RepaymentCheck) error {
		if c.Amount.GreaterThan(c.Loan.RemainingBalance) {
			return domain.NewInsufficientFundsError(c.Loan.Ref(), c.Amount, c.Loan.RemainingBalance)
		}
		return nil
	},
}

var RepaymentRules = []Rule[RepaymentCheck]{LoanActive, NoOverpayment}

// CanRepay validates a repayment against the loan state
func CanRepay(l *domain.Loan, amount decimal.Decimal) error {
	return First(RepaymentCheck{Loan: l, Amount: amount}, RepaymentRules...)
}

// Applicant is the financial context an underwriting decision is based on
type Applicant struct {
	MonthlyIncome decimal.Decimal
	TotalDebt     decimal.Decimal
	CreditScore   int
}

// Decision is the outcome of underwriting
type Decision struct {
	Approved bool
	Rate     decimal.Decimal // fraction, 0.065 means 6.5%
	Reason   string
}

const (
	MinCreditScore   = 600
	primeCreditScore = 750
	scoreStep        = 20
)

var (
	baseRate        = decimal.RequireFromString("0.05")
	scoreStepRate   = decimal.RequireFromString("0.005")
	dtiStepRate     = decimal.RequireFromString("0.0025")
	dtiFreeBand     = decimal.RequireFromString("0.20")
	dtiStep         = decimal.RequireFromString("0.05")
	dtiHighRiskBand = decimal.RequireFromString("0.40")
)

// Underwrite prices a loan for an applicant.
// Scores below 600 are declined. Approved loans start at 5%, plus 0.5% for every full
// 20 points below 750 and 0.25% for every full 5% of debt-to-income above 20%.
func Underwrite(a Applicant) Decision {
	if a.CreditScore < MinCreditScore {
		return Decision{
			Approved: false,
			Rate:     decimal.Zero,
			Reason:   fmt.Sprintf("credit score %d is below the minimum of %d", a.CreditScore, MinCreditScore),
		}
	}

	rate := baseRate
	var notes []string

	if a.CreditScore < primeCreditScore {
		steps := (primeCreditScore - a.CreditScore) / scoreStep
		if steps > 0 {
			rate = rate.Add(scoreStepRate.Mul(decimal.NewFromInt(int64(steps))))
			notes = append(notes, fmt.Sprintf("credit score %d adds %d pricing steps", a.CreditScore, steps))
		}
	}

	dti := DebtToIncome(a.MonthlyIncome, a.TotalDebt)
	if dti.GreaterThan(dtiFreeBand) {
		steps := dti.Sub(dtiFreeBand).Div(dtiStep).Floor()
		if steps.IsPositive() {
			rate = rate.Add(dtiStepRate.Mul(steps))
			notes = append(notes, fmt.Sprintf("debt-to-income %s%% adds %s pricing steps", dti.Mul(decimal.NewFromInt(100)).StringFixed(1), steps))
		}
	}
	if dti.GreaterThan(dtiHighRiskBand) {
		notes = append(notes, "debt-to-income above 40% is a high-risk factor")
	}

	reason := "approved at base rate"
	if len(notes) > 0 {
		reason = "approved: " + strings.Join(notes, "; ")
	}

	return Decision{Approved: true, Rate: rate, Reason: reason}
}

// DebtToIncome returns debt / monthly income, or zero when income is unknown
func DebtToIncome(monthlyIncome, debt decimal.Decimal) decimal.Decimal {
	if !monthlyIncome.IsPositive() {
		return decimal.Zero
	}
	return debt.Div(monthlyIncome)
}
