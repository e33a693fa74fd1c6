// Package wire converts between transport payloads (decoded JSON objects and
// structpb structs) and the ledger's domain types. Both the gRPC and the REST
// transports share it so an operation is parsed the same way on either edge.
package wire

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/rules"
	"github.com/finverse/ledger-backend/internal/usecase/ledger"
)

// ParseOperation resolves an operation name
func ParseOperation(name string) (ledger.Operation, error) {
	for _, op := range ledger.Operations {
		if string(op) == name {
			return op, nil
		}
	}
	return "", domain.NewValidationError(fmt.Sprintf("unknown operation %q", name))
}

// ParseRef parses an entity kind and id pair
func ParseRef(kind, id string) (domain.EntityRef, error) {
	k, err := domain.ParseEntityKind(kind)
	if err != nil {
		return domain.EntityRef{}, err
	}
	parsed, err := ParseID(id, "id")
	if err != nil {
		return domain.EntityRef{}, err
	}
	return domain.EntityRef{Kind: k, ID: parsed}, nil
}

// ParseID parses a uuid, naming field in the error
func ParseID(s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, domain.NewValidationError(fmt.Sprintf("invalid %s format: %v", field, err))
	}
	return id, nil
}

// ParseParams builds the typed parameters of op from a decoded object.
// Amounts may be JSON strings (preferred) or numbers; NaN and infinities are rejected.
func ParseParams(op ledger.Operation, fields map[string]any) (ledger.Params, error) {
	r := &fieldReader{fields: fields}

	var p ledger.Params
	switch op {
	case ledger.OpDebit:
		p = ledger.Debit{
			WalletID:     r.id("wallet_id"),
			Amount:       r.decimal("amount"),
			Description:  r.str("description"),
			Counterparty: r.str("counterparty"),
		}
	case ledger.OpCredit:
		p = ledger.Credit{
			WalletID:     r.id("wallet_id"),
			Amount:       r.decimal("amount"),
			Description:  r.str("description"),
			Counterparty: r.str("counterparty"),
		}
	case ledger.OpTransfer:
		p = ledger.Transfer{
			FromWalletID: r.id("from_wallet_id"),
			ToWalletID:   r.id("to_wallet_id"),
			Amount:       r.decimal("amount"),
			Description:  r.str("description"),
		}
	case ledger.OpFreezeWallet:
		p = ledger.FreezeWallet{WalletID: r.id("wallet_id"), Reason: r.str("reason")}
	case ledger.OpUnfreezeWallet:
		p = ledger.UnfreezeWallet{WalletID: r.id("wallet_id"), Reason: r.str("reason")}
	case ledger.OpBuyAsset:
		p = ledger.BuyAsset{
			Symbol:    r.str("symbol"),
			USDAmount: r.decimal("usd_amount"),
			Price:     r.decimal("price"),
		}
	case ledger.OpSellAsset:
		p = ledger.SellAsset{
			Symbol:    r.str("symbol"),
			Quantity:  r.decimal("quantity"),
			USDAmount: r.decimal("usd_amount"),
			Price:     r.decimal("price"),
		}
	case ledger.OpMarkPrice:
		p = ledger.MarkPrice{Symbol: r.str("symbol"), Price: r.decimal("price")}
	case ledger.OpOriginateLoan:
		applicant := &fieldReader{fields: r.object("applicant")}
		p = ledger.OriginateLoan{
			Principal:    r.decimal("principal"),
			TermMonths:   r.integer("term_months"),
			InterestRate: r.optDecimal("interest_rate"),
			LoanType:     r.str("loan_type"),
			Purpose:      r.str("purpose"),
			Applicant: rules.Applicant{
				MonthlyIncome: applicant.decimal("monthly_income"),
				TotalDebt:     applicant.decimal("total_debt"),
				CreditScore:   applicant.integer("credit_score"),
			},
			DisburseToWalletID: r.optID("disburse_to_wallet_id"),
		}
		if applicant.err != nil && r.err == nil {
			r.err = applicant.err
		}
	case ledger.OpApplyLoanRepayment:
		p = ledger.ApplyLoanRepayment{
			LoanID:          r.id("loan_id"),
			Amount:          r.decimal("amount"),
			FundingWalletID: r.optID("funding_wallet_id"),
		}
	case ledger.OpRecordIncome:
		p = ledger.RecordIncome{Period: r.str("period"), Source: r.str("source"), Amount: r.decimal("amount")}
	case ledger.OpRecordDeduction:
		p = ledger.RecordDeduction{Period: r.str("period"), Source: r.str("source"), Amount: r.decimal("amount")}
	case ledger.OpFileTaxReturn:
		p = ledger.FileTaxReturn{Period: r.str("period")}
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unknown operation %q", op))
	}

	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}

// Envelope reads the non-operation fields of a request (owner, entity, paging)
type Envelope struct {
	r fieldReader
}

// NewEnvelope wraps a decoded request object
func NewEnvelope(fields map[string]any) *Envelope {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Envelope{r: fieldReader{fields: fields}}
}

// RequiredID reads a uuid field that must be present
func (e *Envelope) RequiredID(field string) uuid.UUID {
	id := e.r.id(field)
	if id == uuid.Nil && e.r.err == nil {
		e.r.err = domain.NewValidationError(field + " is required")
	}
	return id
}

func (e *Envelope) String(field string) string         { return e.r.str(field) }
func (e *Envelope) Int(field string) int               { return e.r.integer(field) }
func (e *Envelope) Object(field string) map[string]any { return e.r.object(field) }

// Err returns the first error met while reading
func (e *Envelope) Err() error { return e.r.err }

// fieldReader pulls typed values out of a decoded object and keeps the first error
type fieldReader struct {
	fields map[string]any
	err    error
}

func (r *fieldReader) fail(field, format string, args ...any) {
	if r.err == nil {
		r.err = domain.NewValidationError(fmt.Sprintf("invalid %s: %s", field, fmt.Sprintf(format, args...)))
	}
}

func (r *fieldReader) str(field string) string {
	v, ok := r.fields[field]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.fail(field, "expected a string")
		return ""
	}
	return strings.TrimSpace(s)
}

func (r *fieldReader) id(field string) uuid.UUID {
	s := r.str(field)
	if s == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		r.fail(field, "%v", err)
		return uuid.Nil
	}
	return id
}

func (r *fieldReader) optID(field string) *uuid.UUID {
	if v, ok := r.fields[field]; !ok || v == nil || v == "" {
		return nil
	}
	id := r.id(field)
	return &id
}

func (r *fieldReader) decimal(field string) decimal.Decimal {
	v, ok := r.fields[field]
	if !ok || v == nil {
		return decimal.Zero
	}

	switch n := v.(type) {
	case string:
		if strings.TrimSpace(n) == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			r.fail(field, "%q is not a decimal", n)
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			r.fail(field, "%q is not a decimal", n.String())
			return decimal.Zero
		}
		return d
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			r.fail(field, "must be a finite number")
			return decimal.Zero
		}
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	default:
		r.fail(field, "expected a decimal string or number")
		return decimal.Zero
	}
}

func (r *fieldReader) optDecimal(field string) *decimal.Decimal {
	if v, ok := r.fields[field]; !ok || v == nil || v == "" {
		return nil
	}
	d := r.decimal(field)
	return &d
}

var (
	minInteger = decimal.NewFromInt(math.MinInt32)
	maxInteger = decimal.NewFromInt(math.MaxInt32)
)

func (r *fieldReader) integer(field string) int {
	v, ok := r.fields[field]
	if !ok || v == nil {
		return 0
	}
	d := r.decimal(field)
	if !d.IsInteger() {
		r.fail(field, "expected a whole number")
		return 0
	}
	if d.LessThan(minInteger) || d.GreaterThan(maxInteger) {
		r.fail(field, "whole number out of range")
		return 0
	}
	return int(d.IntPart())
}

func (r *fieldReader) object(field string) map[string]any {
	v, ok := r.fields[field]
	if !ok || v == nil {
		return map[string]any{}
	}
	m, ok := v.(map[string]any)
	if !ok {
		r.fail(field, "expected an object")
		return map[string]any{}
	}
	return m
}
