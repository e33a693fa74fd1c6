// Package memory is an in-process implementation of the ledger store.
// It keeps the same optimistic concurrency contract as the postgres store:
// every read inside a unit records the version it saw and the commit is
// rejected if any of those versions moved.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finverse/ledger-backend/internal/domain"
)

// Store implements domain.Store and domain.StateReader
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	versions   map[string]int64
	wallets    map[string]domain.Wallet
	portfolios map[string]domain.Portfolio
	holdings   map[string]domain.AssetHolding
	loans      map[string]domain.Loan
	taxLedgers map[string]domain.TaxLedger
	refs       map[domain.EntityRef]string // entity ref -> storage key

	events      []domain.LedgerEvent
	sequence    int64
	idempotency map[string]struct{} // keys that already produced a commit
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used to stamp events
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		versions:    make(map[string]int64),
		wallets:     make(map[string]domain.Wallet),
		portfolios:  make(map[string]domain.Portfolio),
		holdings:    make(map[string]domain.AssetHolding),
		loans:       make(map[string]domain.Loan),
		taxLedgers:  make(map[string]domain.TaxLedger),
		refs:        make(map[domain.EntityRef]string),
		idempotency: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func walletKey(id uuid.UUID) string       { return "wallet:" + id.String() }
func portfolioKey(owner uuid.UUID) string { return "portfolio:" + owner.String() }
func loanKey(id uuid.UUID) string         { return "loan:" + id.String() }

func holdingKey(owner uuid.UUID, sym string) string {
	return "holding:" + owner.String() + ":" + strings.ToUpper(sym)
}
func taxKey(owner uuid.UUID, period string) string {
	return "tax:" + owner.String() + ":" + period
}

// RunInTx runs fn against a snapshot and commits its buffered writes atomically
func (s *Store) RunInTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t := &memTx{store: s, reads: make(map[string]readMark)}
	if err := fn(t); err != nil {
		return err
	}

	// Cancellation before commit leaves the store untouched
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.commit(t)
}

func (s *Store) commit(t *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, mark := range t.reads {
		if s.versions[key] != mark.version {
			return domain.NewConcurrentModificationError(mark.ref, nil)
		}
	}
	for _, w := range t.writes {
		if s.versions[w.key] != w.expected {
			return domain.NewConcurrentModificationError(w.ref, nil)
		}
		if w.expected == 0 {
			if _, taken := s.refs[w.ref]; taken {
				return domain.NewConcurrentModificationError(w.ref, fmt.Errorf("duplicate id"))
			}
		}
	}
	keys := make(map[string]domain.EntityRef)
	for _, e := range t.events {
		if e.IdempotencyKey == "" {
			continue
		}
		if _, used := s.idempotency[e.IdempotencyKey]; used {
			return domain.NewConcurrentModificationError(e.EntityRef(), fmt.Errorf("idempotency key %q already used", e.IdempotencyKey))
		}
		keys[e.IdempotencyKey] = e.EntityRef()
	}

	for _, w := range t.writes {
		next := w.expected + 1
		w.apply(next)
		s.versions[w.key] = next
		s.refs[w.ref] = w.key
	}

	now := s.now().UTC()
	for _, e := range t.events {
		s.sequence++
		e.Sequence = s.sequence
		e.Timestamp = now
		stored := *e
		stored.Details = maps.Clone(e.Details)
		s.events = append(s.events, stored)
	}
	for k := range keys {
		s.idempotency[k] = struct{}{}
	}

	return nil
}

type readMark struct {
	ref     domain.EntityRef
	version int64
}

type pendingWrite struct {
	key      string
	ref      domain.EntityRef
	expected int64
	apply    func(version int64)
}

// memTx buffers writes until commit. Reads go straight to committed state.
type memTx struct {
	store  *Store
	reads  map[string]readMark
	writes []pendingWrite
	events []*domain.LedgerEvent
}

func (t *memTx) mark(key string, ref domain.EntityRef) {
	if _, seen := t.reads[key]; seen {
		return
	}
	t.reads[key] = readMark{ref: ref, version: t.store.versions[key]}
}

// refine attaches the entity id to a read made by natural key
func (t *memTx) refine(key string, ref domain.EntityRef) {
	mark := t.reads[key]
	mark.ref = ref
	t.reads[key] = mark
}

func (t *memTx) GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	key := walletKey(id)
	ref := domain.EntityRef{Kind: domain.EntityWallet, ID: id}
	t.mark(key, ref)
	w, ok := t.store.wallets[key]
	if !ok {
		return nil, domain.NewNotFoundError(ref)
	}
	return &w, nil
}

func (t *memTx) GetPortfolio(ctx context.Context, ownerID uuid.UUID) (*domain.Portfolio, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	key := portfolioKey(ownerID)
	t.mark(key, domain.EntityRef{Kind: domain.EntityPortfolio})
	p, ok := t.store.portfolios[key]
	if !ok {
		return nil, domain.NewNotFoundByKeyError(domain.EntityPortfolio, "for owner "+ownerID.String())
	}
	t.refine(key, p.Ref())
	return &p, nil
}

func (t *memTx) GetHolding(ctx context.Context, ownerID uuid.UUID, symbol string) (*domain.AssetHolding, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	key := holdingKey(ownerID, symbol)
	t.mark(key, domain.EntityRef{Kind: domain.EntityHolding})
	h, ok := t.store.holdings[key]
	if !ok {
		return nil, domain.NewNotFoundByKeyError(domain.EntityHolding, strings.ToUpper(symbol))
	}
	t.refine(key, h.Ref())
	return &h, nil
}

func (t *memTx) GetLoan(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	key := loanKey(id)
	ref := domain.EntityRef{Kind: domain.EntityLoan, ID: id}
	t.mark(key, ref)
	l, ok := t.store.loans[key]
	if !ok {
		return nil, domain.NewNotFoundError(ref)
	}
	return &l, nil
}

func (t *memTx) GetTaxLedger(ctx context.Context, ownerID uuid.UUID, period string) (*domain.TaxLedger, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	key := taxKey(ownerID, period)
	t.mark(key, domain.EntityRef{Kind: domain.EntityTaxLedger})
	l, ok := t.store.taxLedgers[key]
	if !ok {
		return nil, domain.NewNotFoundByKeyError(domain.EntityTaxLedger, "for period "+period)
	}
	t.refine(key, l.Ref())
	return &l, nil
}

func (t *memTx) FindEventsByIdempotencyKey(ctx context.Context, key string) ([]*domain.LedgerEvent, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var out []*domain.LedgerEvent
	for i := range t.store.events {
		if t.store.events[i].IdempotencyKey == key {
			e := t.store.events[i]
			e.Details = maps.Clone(e.Details)
			out = append(out, &e)
		}
	}
	return out, nil
}

func (t *memTx) SaveWallet(ctx context.Context, w *domain.Wallet) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("invalid wallet: %w", err)
	}
	key := walletKey(w.ID)
	t.writes = append(t.writes, pendingWrite{
		key: key, ref: w.Ref(), expected: w.Version,
		apply: func(v int64) {
			w.Version = v
			t.store.wallets[key] = *w
		},
	})
	return nil
}

func (t *memTx) SavePortfolio(ctx context.Context, p *domain.Portfolio) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid portfolio: %w", err)
	}
	key := portfolioKey(p.OwnerID)
	t.writes = append(t.writes, pendingWrite{
		key: key, ref: p.Ref(), expected: p.Version,
		apply: func(v int64) {
			p.Version = v
			t.store.portfolios[key] = *p
		},
	})
	return nil
}

func (t *memTx) SaveHolding(ctx context.Context, h *domain.AssetHolding) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("invalid holding: %w", err)
	}
	key := holdingKey(h.OwnerID, h.Symbol)
	t.writes = append(t.writes, pendingWrite{
		key: key, ref: h.Ref(), expected: h.Version,
		apply: func(v int64) {
			h.Version = v
			t.store.holdings[key] = *h
		},
	})
	return nil
}

func (t *memTx) SaveLoan(ctx context.Context, l *domain.Loan) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid loan: %w", err)
	}
	key := loanKey(l.ID)
	t.writes = append(t.writes, pendingWrite{
		key: key, ref: l.Ref(), expected: l.Version,
		apply: func(v int64) {
			l.Version = v
			t.store.loans[key] = *l
		},
	})
	return nil
}

func (t *memTx) SaveTaxLedger(ctx context.Context, l *domain.TaxLedger) error {
	if err := l.Validate(); err != nil {
		return fmt.Errorf("invalid tax ledger: %w", err)
	}
	key := taxKey(l.OwnerID, l.Period)
	t.writes = append(t.writes, pendingWrite{
		key: key, ref: l.Ref(), expected: l.Version,
		apply: func(v int64) {
			l.Version = v
			t.store.taxLedgers[key] = *l
		},
	})
	return nil
}

func (t *memTx) AppendEvent(ctx context.Context, e *domain.LedgerEvent) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	t.events = append(t.events, e)
	return nil
}

// GetState retrieves the committed state of any entity
func (s *Store) GetState(ctx context.Context, ref domain.EntityRef) (domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.refs[ref]
	if !ok {
		return nil, domain.NewNotFoundError(ref)
	}
	return s.entityAt(ref.Kind, key), nil
}

func (s *Store) entityAt(kind domain.EntityKind, key string) domain.Entity {
	switch kind {
	case domain.EntityWallet:
		w := s.wallets[key]
		return &w
	case domain.EntityPortfolio:
		p := s.portfolios[key]
		return &p
	case domain.EntityHolding:
		h := s.holdings[key]
		return &h
	case domain.EntityLoan:
		l := s.loans[key]
		return &l
	case domain.EntityTaxLedger:
		t := s.taxLedgers[key]
		return &t
	}
	return nil
}

// ListHistory returns events of an entity, newest first
func (s *Store) ListHistory(ctx context.Context, ref domain.EntityRef, page domain.Page) ([]*domain.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page = page.Normalize()
	matched := s.historyOf(ref)
	sort.Slice(matched, func(i, j int) bool { return matched[i].Sequence > matched[j].Sequence })

	if page.Offset >= len(matched) {
		return []*domain.LedgerEvent{}, nil
	}
	end := min(page.Offset+page.Limit, len(matched))
	return matched[page.Offset:end], nil
}

// CountHistory returns the number of events recorded for an entity
func (s *Store) CountHistory(ctx context.Context, ref domain.EntityRef) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.historyOf(ref)), nil
}

func (s *Store) historyOf(ref domain.EntityRef) []*domain.LedgerEvent {
	matched := make([]*domain.LedgerEvent, 0)
	for i := range s.events {
		if s.events[i].EntityID == ref.ID && s.events[i].EntityKind == ref.Kind {
			e := s.events[i]
			e.Details = maps.Clone(e.Details)
			matched = append(matched, &e)
		}
	}
	return matched
}

// ListOwnerEntities returns every entity an owner holds, grouped by kind
func (s *Store) ListOwnerEntities(ctx context.Context, ownerID uuid.UUID) ([]domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Entity, 0)
	for ref, key := range s.refs {
		e := s.entityAt(ref.Kind, key)
		if e != nil && e.Owner() == ownerID {
			out = append(out, e)
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
