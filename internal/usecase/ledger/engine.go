package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
)

// Request is one call to Apply
type Request struct {
	OwnerID        uuid.UUID
	IdempotencyKey string
	Params         Params
}

// storageKey scopes the caller's idempotency key to the requesting owner
func (r Request) storageKey() string {
	if r.IdempotencyKey == "" {
		return ""
	}
	return r.OwnerID.String() + ":" + r.IdempotencyKey
}

// Result is the new state of the primary entity plus every event the commit appended
type Result struct {
	Operation Operation
	State     domain.Entity
	Events    []*domain.LedgerEvent
	Replayed  bool // true when the idempotency key had already been committed
}

// EventIDs returns the ids of the generated events, primary entity first
func (r *Result) EventIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Events))
	for _, e := range r.Events {
		ids = append(ids, e.ID)
	}
	return ids
}

// CommitObserver is notified after a successful, non-replayed commit.
// It must not block; the mutation is already durable when it runs.
type CommitObserver interface {
	OnCommit(ctx context.Context, req Request, res *Result)
}

// Engine is the single mutation entry point for balance-bearing entities
type Engine struct {
	Store    domain.Store
	Observer CommitObserver
	Logger   *slog.Logger
	Clock    func() time.Time
}

// NewEngine creates a new Engine instance. observer may be nil.
func NewEngine(store domain.Store, observer CommitObserver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Store:    store,
		Observer: observer,
		Logger:   logger,
		Clock:    time.Now,
	}
}

// Apply executes one operation as an all-or-nothing unit.
// Logic:
//  1. Reject malformed input before touching the store
//  2. Inside one unit: replay a committed idempotency key, or read state,
//     run the rules, compute the new state and append one event per touched entity
//  3. After commit, notify the observer (advisory generation happens there)
func (e *Engine) Apply(ctx context.Context, req Request) (*Result, error) {
	if req.OwnerID == uuid.Nil {
		return nil, domain.NewValidationError("owner_id is required")
	}
	if req.Params == nil {
		return nil, domain.NewValidationError("operation parameters are required")
	}
	if err := req.Params.validate(); err != nil {
		return nil, err
	}

	op := req.Params.Operation()
	var res *Result
	err := e.Store.RunInTx(ctx, func(tx domain.Tx) error {
		res = nil

		if key := req.storageKey(); key != "" {
			prior, err := tx.FindEventsByIdempotencyKey(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to look up idempotency key: %w", err)
			}
			if len(prior) > 0 {
				res, err = replay(ctx, tx, op, prior)
				return err
			}
		}

		u := &unit{
			ctx: ctx,
			tx:  tx,
			req: req,
			op:  op,
			now: e.Clock().UTC(),
		}
		state, err := u.dispatch()
		if err != nil {
			return err
		}

		res = &Result{Operation: op, State: state, Events: u.events}
		return nil
	})
	if err != nil {
		e.Logger.Debug("ledger operation rejected",
			"operation", op,
			"owner_id", req.OwnerID,
			"kind", domain.KindOf(err),
			"error", err,
		)
		return nil, err
	}

	if res.Replayed {
		e.Logger.Info("ledger operation replayed", "operation", op, "owner_id", req.OwnerID, "idempotency_key", req.IdempotencyKey)
		return res, nil
	}

	e.Logger.Info("ledger operation committed",
		"operation", op,
		"owner_id", req.OwnerID,
		"entity", res.State.Ref().String(),
		"events", len(res.Events),
	)
	if e.Observer != nil {
		e.Observer.OnCommit(ctx, req, res)
	}
	return res, nil
}

// replay rebuilds the result of an already committed request without writing
func replay(ctx context.Context, tx domain.Tx, op Operation, prior []*domain.LedgerEvent) (*Result, error) {
	if prior[0].Operation != string(op) {
		return nil, domain.NewValidationError(fmt.Sprintf("idempotency key already used for %s", prior[0].Operation))
	}

	state, err := loadEntity(ctx, tx, prior[0])
	if err != nil {
		return nil, err
	}
	return &Result{Operation: op, State: state, Events: prior, Replayed: true}, nil
}

// loadEntity reads the current state of the entity an event belongs to
func loadEntity(ctx context.Context, tx domain.Tx, ev *domain.LedgerEvent) (domain.Entity, error) {
	switch ev.EntityKind {
	case domain.EntityWallet:
		return tx.GetWallet(ctx, ev.EntityID)
	case domain.EntityLoan:
		return tx.GetLoan(ctx, ev.EntityID)
	case domain.EntityPortfolio:
		return tx.GetPortfolio(ctx, ev.OwnerID)
	case domain.EntityHolding:
		return tx.GetHolding(ctx, ev.OwnerID, ev.Details[detailSymbol])
	case domain.EntityTaxLedger:
		return tx.GetTaxLedger(ctx, ev.OwnerID, ev.Details[detailPeriod])
	default:
		return nil, fmt.Errorf("unknown entity kind %q", ev.EntityKind)
	}
}

// Detail keys shared by events
const (
	detailDescription  = "description"
	detailCounterparty = "counterparty"
	detailCurrency     = "currency"
	detailSymbol       = "symbol"
	detailSide         = "side"
	detailQuantity     = "quantity_delta"
	detailPrice        = "price"
	detailTotalValue   = "total_value"
	detailCostRemoved  = "cost_removed"
	detailRealized     = "realized_gain"
	detailInvested     = "invested_amount"
	detailGrowth       = "growth_pct"
	detailStatus       = "status"
	detailRate         = "interest_rate"
	detailReason       = "reason"
	detailPeriod       = "period"
	detailSource       = "source"
	detailBracket      = "bracket"
	detailEstimatedTax = "estimated_tax"
	detailIncome       = "total_income"
	detailDeductions   = "total_deductions"
	detailWallet       = "wallet_id"
	detailLoan         = "loan_id"
	detailValueChange  = "value_change"
	detailTermMonths   = "term_months"
	detailTotalRepaid  = "total_repaid"
)

// unit carries the state of one Apply attempt inside the store transaction
type unit struct {
	ctx    context.Context
	tx     domain.Tx
	req    Request
	op     Operation
	now    time.Time
	events []*domain.LedgerEvent
}

func (u *unit) dispatch() (domain.Entity, error) {
	switch p := u.req.Params.(type) {
	case Debit:
		return u.debit(p)
	case Credit:
		return u.credit(p)
	case Transfer:
		return u.transfer(p)
	case FreezeWallet:
		return u.setFrozen(p.WalletID, true, p.Reason)
	case UnfreezeWallet:
		return u.setFrozen(p.WalletID, false, p.Reason)
	case BuyAsset:
		return u.buy(p)
	case SellAsset:
		return u.sell(p)
	case MarkPrice:
		return u.markPrice(p)
	case OriginateLoan:
		return u.originate(p)
	case ApplyLoanRepayment:
		return u.repay(p)
	case RecordIncome:
		return u.recordTaxEntry(p.Period, p.Source, p.Amount, domain.EventIncome)
	case RecordDeduction:
		return u.recordTaxEntry(p.Period, p.Source, p.Amount, domain.EventDeduction)
	case FileTaxReturn:
		return u.fileTaxReturn(p)
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unsupported operation %T", p))
	}
}

// emit appends one event for a touched entity
func (u *unit) emit(entity domain.Entity, kind domain.EventKind, amount, resulting decimal.Decimal, details map[string]string) error {
	ref := entity.Ref()
	ev := &domain.LedgerEvent{
		ID:               uuid.New(),
		EntityID:         ref.ID,
		EntityKind:       ref.Kind,
		OwnerID:          entity.Owner(),
		Kind:             kind,
		Operation:        string(u.op),
		Amount:           amount.Abs(),
		ResultingBalance: resulting,
		IdempotencyKey:   u.req.storageKey(),
		Details:          details,
	}
	if err := u.tx.AppendEvent(u.ctx, ev); err != nil {
		return fmt.Errorf("failed to append %s event: %w", kind, err)
	}
	u.events = append(u.events, ev)
	return nil
}

// owned hides entities of other owners behind EntityNotFound
func (u *unit) owned(e domain.Entity) error {
	if e.Owner() != u.req.OwnerID {
		return domain.NewNotFoundError(e.Ref())
	}
	return nil
}
