//go:build integration

package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/usecase/ledger"
	"github.com/finverse/ledger-backend/internal/usecase/provisioning"
)

var testDB *DB

func TestMain(m *testing.M) {
	connStr := os.Getenv("DB_CONN_STR")
	if connStr == "" {
		connStr = "host=localhost port=5432 user=postgres password=postgres dbname=finverse sslmode=disable"
	}

	var err error
	testDB, err = NewDB(connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	if err := testDB.Migrate(context.Background()); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}

	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

func testTime(minutes int) time.Time {
	return time.Date(2026, 1, 1, 12, minutes, 0, 0, time.UTC)
}

func saveWallet(t *testing.T, s *Store, balance int64) *domain.Wallet {
	t.Helper()
	ctx := context.Background()
	w := &domain.Wallet{ID: uuid.New(), OwnerID: uuid.New(), Balance: decimal.NewFromInt(balance), Currency: "KES"}
	require.NoError(t, s.RunInTx(ctx, func(tx domain.Tx) error { return tx.SaveWallet(ctx, w) }))
	return w
}

func TestStore_RoundTripsWallet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testDB)
	w := saveWallet(t, s, 1500)

	got, err := s.GetState(ctx, w.Ref())
	require.NoError(t, err)

	wallet := got.(*domain.Wallet)
	assert.Equal(t, w.OwnerID, wallet.OwnerID)
	assert.True(t, wallet.Balance.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "KES", wallet.Currency)
	assert.Equal(t, int64(1), wallet.Version)
}

func TestStore_StaleVersionIsRejected(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testDB)
	w := saveWallet(t, s, 10)

	stale := *w
	require.NoError(t, s.RunInTx(ctx, func(tx domain.Tx) error {
		w.Balance = decimal.NewFromInt(1)
		return tx.SaveWallet(ctx, w)
	}))

	err := s.RunInTx(ctx, func(tx domain.Tx) error {
		stale.Balance = decimal.NewFromInt(99)
		return tx.SaveWallet(ctx, &stale)
	})

	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	got, err := s.GetState(ctx, w.Ref())
	require.NoError(t, err)
	assert.True(t, got.(*domain.Wallet).Balance.Equal(decimal.NewFromInt(1)))
}

func TestStore_RollbackDiscardsEvents(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testDB)
	w := saveWallet(t, s, 10)

	err := s.RunInTx(ctx, func(tx domain.Tx) error {
		if err := tx.AppendEvent(ctx, &domain.LedgerEvent{
			ID:               uuid.New(),
			EntityID:         w.ID,
			EntityKind:       domain.EntityWallet,
			OwnerID:          w.OwnerID,
			Kind:             domain.EventDebit,
			Operation:        "debit",
			Amount:           decimal.NewFromInt(5),
			ResultingBalance: decimal.NewFromInt(5),
		}); err != nil {
			return err
		}
		return domain.NewInsufficientFundsError(w.Ref(), decimal.NewFromInt(50), w.Balance)
	})

	require.Error(t, err)
	n, err := s.CountHistory(ctx, w.Ref())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_MissingEntity(t *testing.T) {
	s := NewStore(testDB)

	_, err := s.GetState(context.Background(), domain.EntityRef{Kind: domain.EntityLoan, ID: uuid.New()})

	assert.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestEngine_OnPostgres(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testDB)
	engine := ledger.NewEngine(s, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	owner := uuid.New()

	account, err := provisioning.NewProvisioner(s).Provision(ctx, owner, "KES")
	require.NoError(t, err)
	walletID := account.Wallet.ID

	_, err = engine.Apply(ctx, ledger.Request{OwnerID: owner, Params: ledger.Credit{WalletID: walletID, Amount: decimal.NewFromInt(1000)}})
	require.NoError(t, err)

	debit := ledger.Request{OwnerID: owner, IdempotencyKey: "bill-1", Params: ledger.Debit{WalletID: walletID, Amount: decimal.NewFromInt(300)}}
	first, err := engine.Apply(ctx, debit)
	require.NoError(t, err)
	replay, err := engine.Apply(ctx, debit)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Events[0].ID, replay.Events[0].ID)

	state, err := s.GetState(ctx, domain.EntityRef{Kind: domain.EntityWallet, ID: walletID})
	require.NoError(t, err)
	assert.True(t, state.(*domain.Wallet).Balance.Equal(decimal.NewFromInt(700)))

	history, err := s.ListHistory(ctx, domain.EntityRef{Kind: domain.EntityWallet, ID: walletID}, domain.Page{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Greater(t, history[0].Sequence, history[1].Sequence, "history is newest first")
	assert.Equal(t, "300", history[0].Amount.String())
}

func TestEngine_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testDB)
	engine := ledger.NewEngine(s, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w := saveWallet(t, s, 100)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.ApplyWithRetry(ctx, ledger.Request{
				OwnerID: w.OwnerID,
				Params:  ledger.Debit{WalletID: w.ID, Amount: decimal.NewFromInt(30)},
			}, ledger.RetryPolicy{Attempts: workers, Backoff: 0})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	state, err := s.GetState(ctx, w.Ref())
	require.NoError(t, err)
	assert.True(t, state.(*domain.Wallet).Balance.Equal(decimal.NewFromInt(10)))
	n, err := s.CountHistory(ctx, w.Ref())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCommentaryRepository_ListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewCommentaryRepository(testDB)
	owner := uuid.New()

	for i, text := range []string{"first", "second"} {
		require.NoError(t, repo.Save(ctx, &domain.Commentary{
			ID:        uuid.New(),
			OwnerID:   owner,
			Operation: "debit",
			EventIDs:  []uuid.UUID{uuid.New()},
			Text:      text,
			Available: true,
			CreatedAt: testTime(i),
		}))
	}

	got, err := repo.ListByOwner(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Text)
	assert.Len(t, got[0].EventIDs, 1)
}

func TestStore_RoundTripsHoldingBookCost(t *testing.T) {
	ctx := context.Background()
	s := NewStore(testDB)
	p := &domain.Portfolio{ID: uuid.New(), OwnerID: uuid.New()}
	h := &domain.AssetHolding{
		ID:           uuid.New(),
		OwnerID:      p.OwnerID,
		PortfolioID:  p.ID,
		Symbol:       "AAPL",
		Quantity:     decimal.RequireFromString("33.333333333333333333"),
		CostBasis:    decimal.RequireFromString("3.000000000000000000"),
		BookCost:     decimal.NewFromInt(100),
		CurrentPrice: decimal.NewFromInt(3),
		TotalValue:   decimal.NewFromInt(100),
		LastUpdated:  testTime(0),
	}
	require.NoError(t, s.RunInTx(ctx, func(tx domain.Tx) error {
		if err := tx.SavePortfolio(ctx, p); err != nil {
			return err
		}
		return tx.SaveHolding(ctx, h)
	}))

	got, err := s.GetState(ctx, h.Ref())
	require.NoError(t, err)

	holding := got.(*domain.AssetHolding)
	assert.True(t, holding.BookCost.Equal(decimal.NewFromInt(100)))
	assert.True(t, holding.Quantity.Equal(h.Quantity))
	assert.True(t, holding.TotalValue.Equal(holding.MarketValue()))
}
