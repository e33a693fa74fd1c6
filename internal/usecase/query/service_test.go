package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/finverse/ledger-backend/internal/domain"
)

// MockStateReader is a mock implementation of StateReader
type MockStateReader struct {
	mock.Mock
}

func (m *MockStateReader) GetState(ctx context.Context, ref domain.EntityRef) (domain.Entity, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Entity), args.Error(1)
}

func (m *MockStateReader) ListHistory(ctx context.Context, ref domain.EntityRef, page domain.Page) ([]*domain.LedgerEvent, error) {
	args := m.Called(ctx, ref, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LedgerEvent), args.Error(1)
}

func (m *MockStateReader) CountHistory(ctx context.Context, ref domain.EntityRef) (int, error) {
	args := m.Called(ctx, ref)
	return args.Int(0), args.Error(1)
}

func (m *MockStateReader) ListOwnerEntities(ctx context.Context, ownerID uuid.UUID) ([]domain.Entity, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Entity), args.Error(1)
}

// MockCommentaryRepository is a mock implementation of CommentaryRepository
type MockCommentaryRepository struct {
	mock.Mock
}

func (m *MockCommentaryRepository) Save(ctx context.Context, c *domain.Commentary) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCommentaryRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Commentary, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Commentary), args.Error(1)
}

func TestService_ListHistory(t *testing.T) {
	ctx := context.Background()
	reader := new(MockStateReader)
	service := NewService(reader, nil)

	wallet := &domain.Wallet{ID: uuid.New(), OwnerID: uuid.New(), Balance: decimal.Zero, Currency: "KES"}
	events := []*domain.LedgerEvent{{ID: uuid.New(), Sequence: 7}, {ID: uuid.New(), Sequence: 3}}

	reader.On("GetState", ctx, wallet.Ref()).Return(wallet, nil)
	reader.On("ListHistory", ctx, wallet.Ref(), domain.Page{Limit: domain.DefaultPageSize}).Return(events, nil)
	reader.On("CountHistory", ctx, wallet.Ref()).Return(12, nil)

	page, err := service.ListHistory(ctx, wallet.Ref(), domain.Page{})

	require.NoError(t, err)
	assert.Equal(t, events, page.Events)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, domain.DefaultPageSize, page.Page.Limit)
	reader.AssertExpectations(t)
}

func TestService_ListHistory_UnknownEntity(t *testing.T) {
	ctx := context.Background()
	reader := new(MockStateReader)
	service := NewService(reader, nil)
	ref := domain.EntityRef{Kind: domain.EntityLoan, ID: uuid.New()}

	reader.On("GetState", ctx, ref).Return(nil, domain.NewNotFoundError(ref))

	_, err := service.ListHistory(ctx, ref, domain.Page{Limit: 10})

	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
	reader.AssertNotCalled(t, "ListHistory", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetCurrentState_RequiresID(t *testing.T) {
	service := NewService(new(MockStateReader), nil)

	_, err := service.GetCurrentState(context.Background(), domain.EntityRef{Kind: domain.EntityWallet})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_GetNetWorth(t *testing.T) {
	ctx := context.Background()
	reader := new(MockStateReader)
	service := NewService(reader, nil)
	owner := uuid.New()

	reader.On("ListOwnerEntities", ctx, owner).Return([]domain.Entity{
		&domain.Wallet{OwnerID: owner, Balance: decimal.NewFromInt(500), Currency: "KES"},
		&domain.Wallet{OwnerID: owner, Balance: decimal.NewFromInt(250), Currency: "KES"},
		&domain.Wallet{OwnerID: owner, Balance: decimal.NewFromInt(40), Currency: "USD"},
		&domain.Wallet{OwnerID: owner, Balance: decimal.NewFromInt(999), Currency: "USD", Archived: true},
		&domain.Portfolio{OwnerID: owner, TotalValue: decimal.NewFromInt(1150), InvestedAmount: decimal.NewFromInt(1000), GrowthPct: decimal.NewFromInt(15)},
		&domain.Loan{OwnerID: owner, Status: domain.LoanStatusActive, RemainingBalance: decimal.NewFromInt(300)},
		&domain.Loan{OwnerID: owner, Status: domain.LoanStatusCompleted, RemainingBalance: decimal.Zero},
		&domain.Loan{OwnerID: owner, Status: domain.LoanStatusDeclined},
	}, nil)

	result, err := service.GetNetWorth(ctx, owner)

	require.NoError(t, err)
	assert.True(t, result.Liquidity["KES"].Equal(decimal.NewFromInt(750)))
	assert.True(t, result.Liquidity["USD"].Equal(decimal.NewFromInt(40)), "archived wallets are excluded")
	assert.True(t, result.Equity.Equal(decimal.NewFromInt(1150)))
	assert.True(t, result.Invested.Equal(decimal.NewFromInt(1000)))
	assert.True(t, result.GrowthPct.Equal(decimal.NewFromInt(15)))
	assert.True(t, result.Debt.Equal(decimal.NewFromInt(300)))
}

func TestService_GetNetWorth_ReaderError(t *testing.T) {
	ctx := context.Background()
	reader := new(MockStateReader)
	owner := uuid.New()
	reader.On("ListOwnerEntities", ctx, owner).Return(nil, errors.New("connection refused"))

	_, err := NewService(reader, nil).GetNetWorth(ctx, owner)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list owner entities")
}

func TestService_GetRepaymentSchedule(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	loanID := uuid.New()
	ref := domain.EntityRef{Kind: domain.EntityLoan, ID: loanID}

	tests := []struct {
		name       string
		loan       *domain.Loan
		wantErr    bool
		errMsg     string
		wantLen    int
		wantSettle int
	}{
		{
			name: "Active loan with two payments made",
			loan: &domain.Loan{
				ID: loanID, Status: domain.LoanStatusActive,
				Principal: decimal.NewFromInt(1000), InterestRate: decimal.RequireFromString("0.05"),
				TermMonths: 12, TotalRepaid: decimal.NewFromInt(175), CreatedAt: created,
			},
			wantLen:    12,
			wantSettle: 2,
		},
		{
			name: "Declined loan",
			loan: &domain.Loan{
				ID: loanID, Status: domain.LoanStatusDeclined,
				Principal: decimal.NewFromInt(1000), TermMonths: 12, CreatedAt: created,
			},
			wantErr: true,
			errMsg:  "declined loans have no repayment schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockStateReader)
			reader.On("GetState", ctx, ref).Return(tt.loan, nil)

			plan, err := NewService(reader, nil).GetRepaymentSchedule(ctx, loanID)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Len(t, plan, tt.wantLen)
			settled := 0
			for _, i := range plan {
				if i.Settled() {
					settled++
				}
			}
			assert.Equal(t, tt.wantSettle, settled)
			assert.Equal(t, created.AddDate(0, 1, 0), plan[0].DueDate)
		})
	}
}

func TestService_ListCommentary(t *testing.T) {
	ctx := context.Background()
	repo := new(MockCommentaryRepository)
	service := NewService(nil, repo)
	owner := uuid.New()
	items := []*domain.Commentary{{ID: uuid.New(), OwnerID: owner, Text: domain.NoInsightAvailable}}

	repo.On("ListByOwner", ctx, owner, DefaultCommentaryLimit).Return(items, nil)

	got, err := service.ListCommentary(ctx, owner, 0)

	require.NoError(t, err)
	assert.Equal(t, items, got)
	repo.AssertExpectations(t)

	_, err = service.ListCommentary(ctx, uuid.Nil, 5)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
