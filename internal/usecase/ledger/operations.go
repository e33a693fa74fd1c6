package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/rules"
)

// Operation names a mutation the engine knows how to apply
type Operation string

const (
	OpDebit              Operation = "debit"
	OpCredit             Operation = "credit"
	OpTransfer           Operation = "transfer"
	OpFreezeWallet       Operation = "freeze_wallet"
	OpUnfreezeWallet     Operation = "unfreeze_wallet"
	OpBuyAsset           Operation = "buy_asset"
	OpSellAsset          Operation = "sell_asset"
	OpMarkPrice          Operation = "mark_price"
	OpOriginateLoan      Operation = "originate_loan"
	OpApplyLoanRepayment Operation = "apply_loan_repayment"
	OpRecordIncome       Operation = "record_income"
	OpRecordDeduction    Operation = "record_deduction"
	OpFileTaxReturn      Operation = "file_tax_return"
)

// Operations lists every operation in a stable order
var Operations = []Operation{
	OpDebit, OpCredit, OpTransfer, OpFreezeWallet, OpUnfreezeWallet,
	OpBuyAsset, OpSellAsset, OpMarkPrice,
	OpOriginateLoan, OpApplyLoanRepayment,
	OpRecordIncome, OpRecordDeduction, OpFileTaxReturn,
}

// Params is the tagged variant of operation parameters.
// The set is closed: only types in this package implement it.
type Params interface {
	Operation() Operation
	// validate rejects malformed input before any store interaction
	validate() error
}

// Debit removes money from a wallet (send money, pay bill, withdraw)
type Debit struct {
	WalletID     uuid.UUID
	Amount       decimal.Decimal
	Description  string
	Counterparty string
}

// Credit adds money to a wallet (deposit, receive)
type Credit struct {
	WalletID     uuid.UUID
	Amount       decimal.Decimal
	Description  string
	Counterparty string
}

// Transfer moves money between two wallets, possibly owned by different users, in one unit
type Transfer struct {
	FromWalletID uuid.UUID
	ToWalletID   uuid.UUID
	Amount       decimal.Decimal
	Description  string
}

// FreezeWallet blocks all debits until the wallet is unfrozen
type FreezeWallet struct {
	WalletID uuid.UUID
	Reason   string
}

// UnfreezeWallet lifts a freeze
type UnfreezeWallet struct {
	WalletID uuid.UUID
	Reason   string
}

// BuyAsset invests a USD amount in a symbol. Price, when set, is the execution
// price and also becomes the holding's current price.
type BuyAsset struct {
	Symbol    string
	USDAmount decimal.Decimal
	Price     decimal.Decimal
}

// SellAsset sells either a quantity or a USD amount of a symbol, never both
type SellAsset struct {
	Symbol    string
	Quantity  decimal.Decimal
	USDAmount decimal.Decimal
	Price     decimal.Decimal
}

// MarkPrice revalues a holding at a new market price
type MarkPrice struct {
	Symbol string
	Price  decimal.Decimal
}

// OriginateLoan underwrites and books a loan. InterestRate overrides the
// underwritten rate for approved applications. DisburseToWalletID, when set,
// credits the principal to that wallet in the same unit.
type OriginateLoan struct {
	Principal          decimal.Decimal
	TermMonths         int
	InterestRate       *decimal.Decimal
	LoanType           string
	Purpose            string
	Applicant          rules.Applicant
	DisburseToWalletID *uuid.UUID
}

// ApplyLoanRepayment reduces a loan's remaining balance. FundingWalletID, when
// set, debits the payment from that wallet in the same unit.
type ApplyLoanRepayment struct {
	LoanID          uuid.UUID
	Amount          decimal.Decimal
	FundingWalletID *uuid.UUID
}

// RecordIncome adds taxable income to a period
type RecordIncome struct {
	Period string
	Source string
	Amount decimal.Decimal
}

// RecordDeduction adds a deduction to a period
type RecordDeduction struct {
	Period string
	Source string
	Amount decimal.Decimal
}

// FileTaxReturn closes a period and snapshots its summary
type FileTaxReturn struct {
	Period string
}

func (Debit) Operation() Operation              { return OpDebit }
func (Credit) Operation() Operation             { return OpCredit }
func (Transfer) Operation() Operation           { return OpTransfer }
func (FreezeWallet) Operation() Operation       { return OpFreezeWallet }
func (UnfreezeWallet) Operation() Operation     { return OpUnfreezeWallet }
func (BuyAsset) Operation() Operation           { return OpBuyAsset }
func (SellAsset) Operation() Operation          { return OpSellAsset }
func (MarkPrice) Operation() Operation          { return OpMarkPrice }
func (OriginateLoan) Operation() Operation      { return OpOriginateLoan }
func (ApplyLoanRepayment) Operation() Operation { return OpApplyLoanRepayment }
func (RecordIncome) Operation() Operation       { return OpRecordIncome }
func (RecordDeduction) Operation() Operation    { return OpRecordDeduction }
func (FileTaxReturn) Operation() Operation      { return OpFileTaxReturn }

func walletRef(id uuid.UUID) domain.EntityRef {
	return domain.EntityRef{Kind: domain.EntityWallet, ID: id}
}

func requireID(id uuid.UUID, field string) error {
	if id == uuid.Nil {
		return domain.NewValidationError(field + " is required")
	}
	return nil
}

func requireText(s, field string) error {
	if strings.TrimSpace(s) == "" {
		return domain.NewValidationError(field + " is required")
	}
	return nil
}

func (p Debit) validate() error {
	if err := requireID(p.WalletID, "wallet_id"); err != nil {
		return err
	}
	return rules.ValidAmount(walletRef(p.WalletID), p.Amount)
}

func (p Credit) validate() error {
	if err := requireID(p.WalletID, "wallet_id"); err != nil {
		return err
	}
	return rules.ValidAmount(walletRef(p.WalletID), p.Amount)
}

func (p Transfer) validate() error {
	if err := requireID(p.FromWalletID, "from_wallet_id"); err != nil {
		return err
	}
	if err := requireID(p.ToWalletID, "to_wallet_id"); err != nil {
		return err
	}
	if p.FromWalletID == p.ToWalletID {
		return domain.NewValidationError("cannot transfer to the same wallet")
	}
	return rules.ValidAmount(walletRef(p.FromWalletID), p.Amount)
}

func (p FreezeWallet) validate() error   { return requireID(p.WalletID, "wallet_id") }
func (p UnfreezeWallet) validate() error { return requireID(p.WalletID, "wallet_id") }

func holdingRef() domain.EntityRef { return domain.EntityRef{Kind: domain.EntityHolding} }

func validPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return domain.NewValidationError("price cannot be negative")
	}
	return nil
}

func (p BuyAsset) validate() error {
	if err := requireText(p.Symbol, "symbol"); err != nil {
		return err
	}
	if err := validPrice(p.Price); err != nil {
		return err
	}
	return rules.ValidAmount(holdingRef(), p.USDAmount)
}

func (p SellAsset) validate() error {
	if err := requireText(p.Symbol, "symbol"); err != nil {
		return err
	}
	if err := validPrice(p.Price); err != nil {
		return err
	}
	byQuantity := !p.Quantity.IsZero()
	byValue := !p.USDAmount.IsZero()
	switch {
	case byQuantity && byValue:
		return domain.NewValidationError("sell by quantity or by usd_amount, not both")
	case byQuantity:
		return rules.ValidAmount(holdingRef(), p.Quantity)
	default:
		return rules.ValidAmount(holdingRef(), p.USDAmount)
	}
}

func (p MarkPrice) validate() error {
	if err := requireText(p.Symbol, "symbol"); err != nil {
		return err
	}
	return rules.ValidAmount(holdingRef(), p.Price)
}

func (p OriginateLoan) validate() error {
	loanRef := domain.EntityRef{Kind: domain.EntityLoan}
	if err := rules.ValidAmount(loanRef, p.Principal); err != nil {
		return err
	}
	if p.TermMonths <= 0 {
		return domain.NewValidationError("term_months must be positive")
	}
	if p.TermMonths > domain.MaxTermMonths {
		return domain.NewValidationError(fmt.Sprintf("term_months cannot exceed %d", domain.MaxTermMonths))
	}
	if p.InterestRate != nil && p.InterestRate.IsNegative() {
		return domain.NewValidationError("interest_rate cannot be negative")
	}
	if p.Applicant.MonthlyIncome.IsNegative() || p.Applicant.TotalDebt.IsNegative() {
		return domain.NewValidationError("applicant income and debt cannot be negative")
	}
	if p.DisburseToWalletID != nil {
		return requireID(*p.DisburseToWalletID, "disburse_to_wallet_id")
	}
	return nil
}

func (p ApplyLoanRepayment) validate() error {
	if err := requireID(p.LoanID, "loan_id"); err != nil {
		return err
	}
	if p.FundingWalletID != nil {
		if err := requireID(*p.FundingWalletID, "funding_wallet_id"); err != nil {
			return err
		}
	}
	return rules.ValidAmount(domain.EntityRef{Kind: domain.EntityLoan, ID: p.LoanID}, p.Amount)
}

func taxRef() domain.EntityRef { return domain.EntityRef{Kind: domain.EntityTaxLedger} }

func (p RecordIncome) validate() error {
	if err := requireText(p.Period, "period"); err != nil {
		return err
	}
	return rules.ValidAmount(taxRef(), p.Amount)
}

func (p RecordDeduction) validate() error {
	if err := requireText(p.Period, "period"); err != nil {
		return err
	}
	return rules.ValidAmount(taxRef(), p.Amount)
}

func (p FileTaxReturn) validate() error { return requireText(p.Period, "period") }
