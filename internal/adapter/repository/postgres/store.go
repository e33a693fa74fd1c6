package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/finverse/ledger-backend/internal/domain"
)

// Store implements domain.Store and domain.StateReader on PostgreSQL.
// Every Save is a compare-and-swap on the version column: inserts start at
// version 1, updates only match the version that was read.
type Store struct {
	db *DB
}

// NewStore creates a new postgres store
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// RunInTx runs fn inside one database transaction
func (s *Store) RunInTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := fn(&pgTx{tx: dbTx, keys: make(map[string]bool)}); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return translate(fmt.Errorf("failed to commit transaction: %w", err), domain.EntityRef{})
	}
	return nil
}

// translate turns constraint and serialization failures into ConcurrentModification
func translate(err error, ref domain.EntityRef) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation", "serialization_failure", "deadlock_detected":
			return domain.NewConcurrentModificationError(ref, err)
		}
	}
	return err
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// pgTx implements domain.Tx on a *sql.Tx
type pgTx struct {
	tx   *sql.Tx
	keys map[string]bool // idempotency keys reserved in this transaction
}

func (t *pgTx) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	return selectWallet(ctx, t.tx, id)
}

func (t *pgTx) GetPortfolio(ctx context.Context, ownerID uuid.UUID) (*domain.Portfolio, error) {
	return selectPortfolio(ctx, t.tx, ownerID)
}

func (t *pgTx) GetHolding(ctx context.Context, ownerID uuid.UUID, symbol string) (*domain.AssetHolding, error) {
	return selectHolding(ctx, t.tx, ownerID, symbol)
}

func (t *pgTx) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return selectLoan(ctx, t.tx, id)
}

func (t *pgTx) GetTaxLedger(ctx context.Context, ownerID uuid.UUID, period string) (*domain.TaxLedger, error) {
	return selectTaxLedger(ctx, t.tx, ownerID, period)
}

func (t *pgTx) FindEventsByIdempotencyKey(ctx context.Context, key string) ([]*domain.LedgerEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM ledger_events WHERE idempotency_key = $1 ORDER BY sequence ASC`

	rows, err := t.tx.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by idempotency key: %w", err)
	}
	return scanEvents(rows)
}

// save inserts when version is 0 and otherwise updates the row only if its
// version is unchanged. Both statements take args followed by the version.
func (t *pgTx) save(ctx context.Context, ref domain.EntityRef, version *int64, insertQuery, updateQuery string, args ...any) error {
	if *version == 0 {
		if _, err := t.tx.ExecContext(ctx, insertQuery, append(args, int64(1))...); err != nil {
			return translate(fmt.Errorf("failed to insert %s: %w", ref.Kind, err), ref)
		}
		*version = 1
		return nil
	}

	result, err := t.tx.ExecContext(ctx, updateQuery, append(args, *version)...)
	if err != nil {
		return translate(fmt.Errorf("failed to update %s: %w", ref.Kind, err), ref)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.NewConcurrentModificationError(ref, nil)
	}
	*version++
	return nil
}

func (t *pgTx) SaveWallet(ctx context.Context, w *domain.Wallet) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("invalid wallet: %w", err)
	}
	insertQuery := `
		INSERT INTO wallets (id, owner_id, balance, currency, frozen, archived, last_updated, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	updateQuery := `
		UPDATE wallets
		SET owner_id = $2, balance = $3, currency = $4, frozen = $5, archived = $6, last_updated = $7,
			version = version + 1
		WHERE id = $1 AND version = $8
	`
	return t.save(ctx, w.Ref(), &w.Version, insertQuery, updateQuery,
		w.ID, w.OwnerID, w.Balance.String(), w.Currency, w.Frozen, w.Archived, w.LastUpdated)
}

func (t *pgTx) SavePortfolio(ctx context.Context, p *domain.Portfolio) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid portfolio: %w", err)
	}
	insertQuery := `
		INSERT INTO portfolios (id, owner_id, total_value, invested_amount, growth_pct, last_updated, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	updateQuery := `
		UPDATE portfolios
		SET owner_id = $2, total_value = $3, invested_amount = $4, growth_pct = $5, last_updated = $6,
			version = version + 1
		WHERE id = $1 AND version = $7
	`
	return t.save(ctx, p.Ref(), &p.Version, insertQuery, updateQuery,
		p.ID, p.OwnerID, p.TotalValue.String(), p.InvestedAmount.String(), p.GrowthPct.String(), p.LastUpdated)
}

func (t *pgTx) SaveHolding(ctx context.Context, h *domain.AssetHolding) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("invalid holding: %w", err)
	}
	insertQuery := `
		INSERT INTO asset_holdings (id, owner_id, portfolio_id, symbol, quantity, cost_basis, book_cost,
			current_price, total_value, last_updated, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	updateQuery := `
		UPDATE asset_holdings
		SET owner_id = $2, portfolio_id = $3, symbol = $4, quantity = $5, cost_basis = $6, book_cost = $7,
			current_price = $8, total_value = $9, last_updated = $10, version = version + 1
		WHERE id = $1 AND version = $11
	`
	return t.save(ctx, h.Ref(), &h.Version, insertQuery, updateQuery,
		h.ID, h.OwnerID, h.PortfolioID, strings.ToUpper(h.Symbol), h.Quantity.String(), h.CostBasis.String(),
		h.BookCost.String(), h.CurrentPrice.String(), h.TotalValue.String(), h.LastUpdated)
}

func (t *pgTx) SaveLoan(ctx context.Context, l *domain.Loan) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid loan: %w", err)
	}
	insertQuery := `
		INSERT INTO loans (id, owner_id, principal, interest_rate, term_months, remaining_balance, total_repaid,
			monthly_installment, status, loan_type, purpose, credit_score, decision_reason, due_date, created_at,
			last_updated, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	updateQuery := `
		UPDATE loans
		SET owner_id = $2, principal = $3, interest_rate = $4, term_months = $5, remaining_balance = $6,
			total_repaid = $7, monthly_installment = $8, status = $9, loan_type = $10, purpose = $11,
			credit_score = $12, decision_reason = $13, due_date = $14, created_at = $15, last_updated = $16,
			version = version + 1
		WHERE id = $1 AND version = $17
	`
	return t.save(ctx, l.Ref(), &l.Version, insertQuery, updateQuery,
		l.ID, l.OwnerID, l.Principal.String(), l.InterestRate.String(), l.TermMonths, l.RemainingBalance.String(),
		l.TotalRepaid.String(), l.MonthlyInstallment.String(), string(l.Status), l.LoanType, l.Purpose,
		l.CreditScore, l.DecisionReason, nullTime(l.DueDate), l.CreatedAt, l.LastUpdated)
}

func (t *pgTx) SaveTaxLedger(ctx context.Context, l *domain.TaxLedger) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid tax ledger: %w", err)
	}
	var filedAt any
	if l.FiledAt != nil {
		filedAt = *l.FiledAt
	}
	insertQuery := `
		INSERT INTO tax_ledgers (id, owner_id, period, total_income, total_deductions, net_taxable, bracket,
			estimated_tax, status, filed_at, last_updated, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	updateQuery := `
		UPDATE tax_ledgers
		SET owner_id = $2, period = $3, total_income = $4, total_deductions = $5, net_taxable = $6,
			bracket = $7, estimated_tax = $8, status = $9, filed_at = $10, last_updated = $11,
			version = version + 1
		WHERE id = $1 AND version = $12
	`
	return t.save(ctx, l.Ref(), &l.Version, insertQuery, updateQuery,
		l.ID, l.OwnerID, l.Period, l.TotalIncome.String(), l.TotalDeductions.String(), l.NetTaxable.String(),
		string(l.Bracket), l.EstimatedTax.String(), string(l.Status), filedAt, l.LastUpdated)
}

// AppendEvent inserts the event and lets the database assign sequence and timestamp.
// The first event carrying an idempotency key reserves it; a second unit
// reserving the same key fails with ConcurrentModification.
func (t *pgTx) AppendEvent(ctx context.Context, e *domain.LedgerEvent) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	var key any
	if e.IdempotencyKey != "" {
		key = e.IdempotencyKey
		if !t.keys[e.IdempotencyKey] {
			_, err := t.tx.ExecContext(ctx, `INSERT INTO idempotency_keys (key) VALUES ($1)`, e.IdempotencyKey)
			if err != nil {
				return translate(fmt.Errorf("failed to reserve idempotency key: %w", err), e.EntityRef())
			}
			t.keys[e.IdempotencyKey] = true
		}
	}

	details := e.Details
	if details == nil {
		details = map[string]string{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode event details: %w", err)
	}

	query := `
		INSERT INTO ledger_events (id, entity_id, entity_kind, owner_id, kind, operation, amount,
			resulting_balance, idempotency_key, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING sequence, created_at
	`
	err = t.tx.QueryRowContext(ctx, query,
		e.ID,
		e.EntityID,
		string(e.EntityKind),
		e.OwnerID,
		string(e.Kind),
		e.Operation,
		e.Amount.String(),
		e.ResultingBalance.String(),
		key,
		detailsJSON,
	).Scan(&e.Sequence, &e.Timestamp)
	if err != nil {
		return translate(fmt.Errorf("failed to insert ledger event: %w", err), e.EntityRef())
	}
	e.Timestamp = e.Timestamp.UTC()
	return nil
}
