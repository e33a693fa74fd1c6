package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/finverse/ledger-backend/internal/domain"
)

const (
	walletColumns    = `id, owner_id, balance, currency, frozen, archived, last_updated, version`
	portfolioColumns = `id, owner_id, total_value, invested_amount, growth_pct, last_updated, version`
	holdingColumns   = `id, owner_id, portfolio_id, symbol, quantity, cost_basis, book_cost, current_price, total_value, last_updated, version`
	loanColumns      = `id, owner_id, principal, interest_rate, term_months, remaining_balance, total_repaid,
		monthly_installment, status, loan_type, purpose, credit_score, decision_reason, due_date, created_at,
		last_updated, version`
	taxColumns = `id, owner_id, period, total_income, total_deductions, net_taxable, bracket, estimated_tax,
		status, filed_at, last_updated, version`
	eventColumns = `sequence, id, entity_id, entity_kind, owner_id, kind, operation, amount, resulting_balance,
		idempotency_key, details, created_at`
)

// Decimal columns are scanned straight into decimal.Decimal, which implements sql.Scanner

func scanWallet(row rowScanner) (*domain.Wallet, error) {
	var w domain.Wallet
	var currency string
	err := row.Scan(&w.ID, &w.OwnerID, &w.Balance, &currency, &w.Frozen, &w.Archived, &w.LastUpdated, &w.Version)
	if err != nil {
		return nil, err
	}
	w.Currency = strings.TrimSpace(currency)
	return &w, nil
}

func scanPortfolio(row rowScanner) (*domain.Portfolio, error) {
	var p domain.Portfolio
	err := row.Scan(&p.ID, &p.OwnerID, &p.TotalValue, &p.InvestedAmount, &p.GrowthPct, &p.LastUpdated, &p.Version)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanHolding(row rowScanner) (*domain.AssetHolding, error) {
	var h domain.AssetHolding
	err := row.Scan(&h.ID, &h.OwnerID, &h.PortfolioID, &h.Symbol, &h.Quantity, &h.CostBasis,
		&h.BookCost, &h.CurrentPrice, &h.TotalValue, &h.LastUpdated, &h.Version)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func scanLoan(row rowScanner) (*domain.Loan, error) {
	var l domain.Loan
	var status string
	var dueDate sql.NullTime
	err := row.Scan(&l.ID, &l.OwnerID, &l.Principal, &l.InterestRate, &l.TermMonths, &l.RemainingBalance,
		&l.TotalRepaid, &l.MonthlyInstallment, &status, &l.LoanType, &l.Purpose, &l.CreditScore,
		&l.DecisionReason, &dueDate, &l.CreatedAt, &l.LastUpdated, &l.Version)
	if err != nil {
		return nil, err
	}
	l.Status = domain.LoanStatus(status)
	if dueDate.Valid {
		l.DueDate = dueDate.Time
	}
	return &l, nil
}

func scanTaxLedger(row rowScanner) (*domain.TaxLedger, error) {
	var t domain.TaxLedger
	var bracket, status string
	var filedAt sql.NullTime
	err := row.Scan(&t.ID, &t.OwnerID, &t.Period, &t.TotalIncome, &t.TotalDeductions, &t.NetTaxable,
		&bracket, &t.EstimatedTax, &status, &filedAt, &t.LastUpdated, &t.Version)
	if err != nil {
		return nil, err
	}
	t.Bracket = domain.TaxBracket(bracket)
	t.Status = domain.TaxStatus(status)
	if filedAt.Valid {
		ts := filedAt.Time
		t.FiledAt = &ts
	}
	return &t, nil
}

func scanEvent(row rowScanner) (*domain.LedgerEvent, error) {
	var e domain.LedgerEvent
	var entityKind, kind string
	var key sql.NullString
	var details []byte
	err := row.Scan(&e.Sequence, &e.ID, &e.EntityID, &entityKind, &e.OwnerID, &kind, &e.Operation,
		&e.Amount, &e.ResultingBalance, &key, &details, &e.Timestamp)
	if err != nil {
		return nil, err
	}
	e.EntityKind = domain.EntityKind(entityKind)
	e.Kind = domain.EventKind(kind)
	e.IdempotencyKey = key.String
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("failed to parse event details: %w", err)
		}
	}
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]*domain.LedgerEvent, error) {
	defer rows.Close()

	events := make([]*domain.LedgerEvent, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// getOne runs a single row query and maps sql.ErrNoRows to EntityNotFound
func getOne[T any](ctx context.Context, q querier, notFound *domain.LedgerError, scan func(rowScanner) (T, error), query string, args ...any) (T, error) {
	v, err := scan(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		var zero T
		if errors.Is(err, sql.ErrNoRows) {
			return zero, notFound
		}
		return zero, fmt.Errorf("failed to get %s: %w", notFound.Entity.Kind, err)
	}
	return v, nil
}

func selectWallet(ctx context.Context, q querier, id uuid.UUID) (*domain.Wallet, error) {
	ref := domain.EntityRef{Kind: domain.EntityWallet, ID: id}
	return getOne(ctx, q, domain.NewNotFoundError(ref), scanWallet,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
}

func selectPortfolio(ctx context.Context, q querier, ownerID uuid.UUID) (*domain.Portfolio, error) {
	return getOne(ctx, q, domain.NewNotFoundByKeyError(domain.EntityPortfolio, "for owner "+ownerID.String()), scanPortfolio,
		`SELECT `+portfolioColumns+` FROM portfolios WHERE owner_id = $1`, ownerID)
}

func selectHolding(ctx context.Context, q querier, ownerID uuid.UUID, symbol string) (*domain.AssetHolding, error) {
	symbol = strings.ToUpper(symbol)
	return getOne(ctx, q, domain.NewNotFoundByKeyError(domain.EntityHolding, symbol), scanHolding,
		`SELECT `+holdingColumns+` FROM asset_holdings WHERE owner_id = $1 AND symbol = $2`, ownerID, symbol)
}

func selectLoan(ctx context.Context, q querier, id uuid.UUID) (*domain.Loan, error) {
	ref := domain.EntityRef{Kind: domain.EntityLoan, ID: id}
	return getOne(ctx, q, domain.NewNotFoundError(ref), scanLoan,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, id)
}

func selectTaxLedger(ctx context.Context, q querier, ownerID uuid.UUID, period string) (*domain.TaxLedger, error) {
	return getOne(ctx, q, domain.NewNotFoundByKeyError(domain.EntityTaxLedger, "for period "+period), scanTaxLedger,
		`SELECT `+taxColumns+` FROM tax_ledgers WHERE owner_id = $1 AND period = $2`, ownerID, period)
}
