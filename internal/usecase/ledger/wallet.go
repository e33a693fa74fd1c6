package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/rules"
)

// loadWallet reads a wallet and checks it belongs to the requesting owner
func (u *unit) loadWallet(id uuid.UUID) (*domain.Wallet, error) {
	w, err := u.tx.GetWallet(u.ctx, id)
	if err != nil {
		return nil, err
	}
	if err := u.owned(w); err != nil {
		return nil, err
	}
	return w, nil
}

// withdraw applies an outgoing movement to a wallet already read in this unit
func (u *unit) withdraw(w *domain.Wallet, amount decimal.Decimal, kind domain.EventKind, details map[string]string) error {
	if err := rules.CanDebit(w, amount); err != nil {
		return err
	}

	w.Balance = w.Balance.Sub(amount)
	w.LastUpdated = u.now
	if err := u.tx.SaveWallet(u.ctx, w); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}

	details[detailCurrency] = w.Currency
	return u.emit(w, kind, amount, w.Balance, details)
}

// deposit applies an incoming movement to a wallet already read in this unit
func (u *unit) deposit(w *domain.Wallet, amount decimal.Decimal, kind domain.EventKind, details map[string]string) error {
	if err := rules.CanCredit(w, amount); err != nil {
		return err
	}

	w.Balance = w.Balance.Add(amount)
	w.LastUpdated = u.now
	if err := u.tx.SaveWallet(u.ctx, w); err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}

	details[detailCurrency] = w.Currency
	return u.emit(w, kind, amount, w.Balance, details)
}

// debit handles send money, pay bill and withdraw
func (u *unit) debit(p Debit) (domain.Entity, error) {
	w, err := u.loadWallet(p.WalletID)
	if err != nil {
		return nil, err
	}

	details := map[string]string{
		detailDescription:  p.Description,
		detailCounterparty: p.Counterparty,
	}
	if err := u.withdraw(w, p.Amount, domain.EventDebit, details); err != nil {
		return nil, err
	}
	return w, nil
}

// credit handles deposits and incoming payments
func (u *unit) credit(p Credit) (domain.Entity, error) {
	w, err := u.loadWallet(p.WalletID)
	if err != nil {
		return nil, err
	}

	details := map[string]string{
		detailDescription:  p.Description,
		detailCounterparty: p.Counterparty,
	}
	if err := u.deposit(w, p.Amount, domain.EventCredit, details); err != nil {
		return nil, err
	}
	return w, nil
}

// transfer debits the sender and credits the recipient as one unit.
// This is the only operation allowed to touch two owners' entities.
func (u *unit) transfer(p Transfer) (domain.Entity, error) {
	from, err := u.loadWallet(p.FromWalletID)
	if err != nil {
		return nil, err
	}
	to, err := u.tx.GetWallet(u.ctx, p.ToWalletID)
	if err != nil {
		return nil, err
	}
	if err := rules.First(rules.WalletCheck{Wallet: to, Amount: p.Amount}, rules.SameCurrency(from.Currency)); err != nil {
		return nil, err
	}

	outDetails := map[string]string{
		detailDescription:  p.Description,
		detailCounterparty: to.OwnerID.String(),
		detailWallet:       to.ID.String(),
	}
	if err := u.withdraw(from, p.Amount, domain.EventTransferOut, outDetails); err != nil {
		return nil, err
	}

	inDetails := map[string]string{
		detailDescription:  p.Description,
		detailCounterparty: from.OwnerID.String(),
		detailWallet:       from.ID.String(),
	}
	if err := u.deposit(to, p.Amount, domain.EventTransferIn, inDetails); err != nil {
		return nil, err
	}
	return from, nil
}

// setFrozen toggles the freeze flag. Setting the current value is rejected.
func (u *unit) setFrozen(id uuid.UUID, frozen bool, reason string) (domain.Entity, error) {
	w, err := u.loadWallet(id)
	if err != nil {
		return nil, err
	}
	if w.Frozen == frozen {
		state := "unfrozen"
		if frozen {
			state = "frozen"
		}
		return nil, domain.NewValidationError(fmt.Sprintf("%s is already %s", w.Ref(), state))
	}

	w.Frozen = frozen
	w.LastUpdated = u.now
	if err := u.tx.SaveWallet(u.ctx, w); err != nil {
		return nil, fmt.Errorf("failed to save wallet: %w", err)
	}

	kind := domain.EventUnfreeze
	if frozen {
		kind = domain.EventFreeze
	}
	if err := u.emit(w, kind, decimal.Zero, w.Balance, map[string]string{detailReason: reason}); err != nil {
		return nil, err
	}
	return w, nil
}
