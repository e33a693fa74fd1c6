package query

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/usecase/schedule"
)

// DefaultCommentaryLimit caps ListCommentary when the caller passes no limit
const DefaultCommentaryLimit = 20

// HistoryPage is one window of an entity's history plus the total event count
type HistoryPage struct {
	Events []*domain.LedgerEvent
	Total  int
	Page   domain.Page
}

// NetWorthResult summarizes an owner's committed positions
type NetWorthResult struct {
	Liquidity map[string]decimal.Decimal // wallet balances per currency, archived wallets excluded
	Equity    decimal.Decimal            // portfolio total value (USD)
	Invested  decimal.Decimal
	Debt      decimal.Decimal // remaining balance of active loans
	GrowthPct decimal.Decimal
}

// Service is the read side for display layers. It reads committed state only.
type Service struct {
	Reader         domain.StateReader
	CommentaryRepo domain.CommentaryRepository
}

// NewService creates a new query Service instance
func NewService(reader domain.StateReader, commentaryRepo domain.CommentaryRepository) *Service {
	return &Service{
		Reader:         reader,
		CommentaryRepo: commentaryRepo,
	}
}

// GetCurrentState returns the committed state of an entity
func (s *Service) GetCurrentState(ctx context.Context, ref domain.EntityRef) (domain.Entity, error) {
	if ref.ID == uuid.Nil {
		return nil, domain.NewValidationError("entity id is required")
	}
	return s.Reader.GetState(ctx, ref)
}

// ListHistory returns a page of events for an entity, newest first.
// Unknown entities are reported as not found rather than as an empty page.
func (s *Service) ListHistory(ctx context.Context, ref domain.EntityRef, page domain.Page) (*HistoryPage, error) {
	if _, err := s.GetCurrentState(ctx, ref); err != nil {
		return nil, err
	}

	page = page.Normalize()
	events, err := s.Reader.ListHistory(ctx, ref, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	total, err := s.Reader.CountHistory(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	return &HistoryPage{Events: events, Total: total, Page: page}, nil
}

// GetNetWorth summarizes an owner's entities
// Logic:
//   - Liquidity: Sum of wallet balances, grouped by currency
//   - Equity: Portfolio total value, growth taken from the portfolio as committed
//   - Debt: Remaining balance of active loans
func (s *Service) GetNetWorth(ctx context.Context, ownerID uuid.UUID) (*NetWorthResult, error) {
	entities, err := s.Reader.ListOwnerEntities(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner entities: %w", err)
	}

	result := &NetWorthResult{
		Liquidity: make(map[string]decimal.Decimal),
		Equity:    decimal.Zero,
		Invested:  decimal.Zero,
		Debt:      decimal.Zero,
		GrowthPct: decimal.Zero,
	}
	for _, e := range entities {
		switch v := e.(type) {
		case *domain.Wallet:
			if v.Archived {
				continue
			}
			result.Liquidity[v.Currency] = result.Liquidity[v.Currency].Add(v.Balance)
		case *domain.Portfolio:
			result.Equity = result.Equity.Add(v.TotalValue)
			result.Invested = result.Invested.Add(v.InvestedAmount)
			result.GrowthPct = v.GrowthPct
		case *domain.Loan:
			if v.Status == domain.LoanStatusActive {
				result.Debt = result.Debt.Add(v.RemainingBalance)
			}
		}
	}

	return result, nil
}

// GetRepaymentSchedule rebuilds the installment plan of a loan and marks what is already repaid
func (s *Service) GetRepaymentSchedule(ctx context.Context, loanID uuid.UUID) ([]schedule.Installment, error) {
	e, err := s.GetCurrentState(ctx, domain.EntityRef{Kind: domain.EntityLoan, ID: loanID})
	if err != nil {
		return nil, err
	}
	loan, ok := e.(*domain.Loan)
	if !ok {
		return nil, fmt.Errorf("unexpected entity type %T for loan", e)
	}
	if loan.Status == domain.LoanStatusDeclined {
		return nil, domain.NewValidationError("declined loans have no repayment schedule")
	}

	plan, err := schedule.Build(loan.TotalOwed(), loan.TermMonths, loan.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule: %w", err)
	}
	return schedule.ApplyRepaid(plan, loan.TotalRepaid), nil
}

// ListCommentary returns the latest advisory commentary for an owner, newest first
func (s *Service) ListCommentary(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Commentary, error) {
	if ownerID == uuid.Nil {
		return nil, domain.NewValidationError("owner_id is required")
	}
	if limit <= 0 || limit > domain.MaxPageSize {
		limit = DefaultCommentaryLimit
	}

	items, err := s.CommentaryRepo.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list commentary: %w", err)
	}
	return items, nil
}
