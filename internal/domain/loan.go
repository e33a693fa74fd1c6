package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus represents the lifecycle state of a loan
type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
	LoanStatusDeclined  LoanStatus = "declined"
)

// MaxTermMonths caps loan terms at fifty years
const MaxTermMonths = 600

// Loan tracks principal, pricing and the outstanding balance of a credit line.
// InterestRate is a flat fraction over the whole term (0.075 means 7.5%).
type Loan struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	Principal          decimal.Decimal
	InterestRate       decimal.Decimal
	TermMonths         int
	RemainingBalance   decimal.Decimal // Principal*(1+InterestRate) - sum of repayments
	TotalRepaid        decimal.Decimal
	MonthlyInstallment decimal.Decimal
	Status             LoanStatus
	LoanType           string
	Purpose            string
	CreditScore        int
	DecisionReason     string
	DueDate            time.Time
	CreatedAt          time.Time
	LastUpdated        time.Time
	Version            int64
}

func (l *Loan) Ref() EntityRef        { return EntityRef{Kind: EntityLoan, ID: l.ID} }
func (l *Loan) Owner() uuid.UUID      { return l.OwnerID }
func (l *Loan) CurrentVersion() int64 { return l.Version }

// TotalOwed is the amount due over the life of the loan
func (l *Loan) TotalOwed() decimal.Decimal {
	return l.Principal.Mul(decimal.NewFromInt(1).Add(l.InterestRate))
}

// Validate ensures the loan adheres to domain rules
func (l *Loan) Validate() error {
	if l.OwnerID == uuid.Nil {
		return errors.New("loan owner cannot be empty")
	}
	if !l.Principal.IsPositive() {
		return errors.New("loan principal must be positive")
	}
	if l.TermMonths <= 0 || l.TermMonths > MaxTermMonths {
		return errors.New("loan term must be between 1 and 600 months")
	}
	if l.InterestRate.IsNegative() {
		return errors.New("loan interest rate cannot be negative")
	}
	if l.RemainingBalance.IsNegative() {
		return errors.New("loan remaining balance cannot be negative")
	}
	switch l.Status {
	case LoanStatusActive, LoanStatusCompleted:
		if l.RemainingBalance.Add(l.TotalRepaid).GreaterThan(l.TotalOwed()) {
			return errors.New("loan remaining balance cannot exceed the amount owed")
		}
	case LoanStatusDeclined:
		if !l.RemainingBalance.IsZero() {
			return errors.New("declined loan cannot carry a balance")
		}
	default:
		return errors.New("invalid loan status")
	}
	return nil
}
