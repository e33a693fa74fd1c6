package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/finverse/ledger-backend/internal/domain"
)

// GetState retrieves the committed state of any entity
func (s *Store) GetState(ctx context.Context, ref domain.EntityRef) (domain.Entity, error) {
	notFound := domain.NewNotFoundError(ref)

	switch ref.Kind {
	case domain.EntityWallet:
		return selectWallet(ctx, s.db, ref.ID)
	case domain.EntityLoan:
		return selectLoan(ctx, s.db, ref.ID)
	case domain.EntityPortfolio:
		return getOne(ctx, s.db, notFound, scanPortfolio,
			`SELECT `+portfolioColumns+` FROM portfolios WHERE id = $1`, ref.ID)
	case domain.EntityHolding:
		return getOne(ctx, s.db, notFound, scanHolding,
			`SELECT `+holdingColumns+` FROM asset_holdings WHERE id = $1`, ref.ID)
	case domain.EntityTaxLedger:
		return getOne(ctx, s.db, notFound, scanTaxLedger,
			`SELECT `+taxColumns+` FROM tax_ledgers WHERE id = $1`, ref.ID)
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unknown entity kind %q", ref.Kind))
	}
}

// ListHistory returns events of an entity, newest first
func (s *Store) ListHistory(ctx context.Context, ref domain.EntityRef, page domain.Page) ([]*domain.LedgerEvent, error) {
	page = page.Normalize()
	query := `
		SELECT ` + eventColumns + `
		FROM ledger_events
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY sequence DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := s.db.QueryContext(ctx, query, string(ref.Kind), ref.ID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return scanEvents(rows)
}

// CountHistory returns the number of events recorded for an entity
func (s *Store) CountHistory(ctx context.Context, ref domain.EntityRef) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_events WHERE entity_kind = $1 AND entity_id = $2`,
		string(ref.Kind), ref.ID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return n, nil
}

// ListOwnerEntities returns every entity an owner holds, grouped by kind
func (s *Store) ListOwnerEntities(ctx context.Context, ownerID uuid.UUID) ([]domain.Entity, error) {
	out := make([]domain.Entity, 0)

	collect := func(table, columns string, scan func(rowScanner) (domain.Entity, error)) error {
		rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM `+table+` WHERE owner_id = $1`, ownerID)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", table, err)
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scan(rows)
			if err != nil {
				return fmt.Errorf("failed to scan %s: %w", table, err)
			}
			out = append(out, e)
		}
		return rows.Err()
	}

	sources := []struct {
		table   string
		columns string
		scan    func(rowScanner) (domain.Entity, error)
	}{
		{"wallets", walletColumns, func(r rowScanner) (domain.Entity, error) { return scanWallet(r) }},
		{"portfolios", portfolioColumns, func(r rowScanner) (domain.Entity, error) { return scanPortfolio(r) }},
		{"asset_holdings", holdingColumns, func(r rowScanner) (domain.Entity, error) { return scanHolding(r) }},
		{"loans", loanColumns, func(r rowScanner) (domain.Entity, error) { return scanLoan(r) }},
		{"tax_ledgers", taxColumns, func(r rowScanner) (domain.Entity, error) { return scanTaxLedger(r) }},
	}
	for _, src := range sources {
		if err := collect(src.table, src.columns, src.scan); err != nil {
			return nil, err
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Ref(), out[j].Ref()
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}
