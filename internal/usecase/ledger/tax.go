package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/rules"
)

func (u *unit) taxDetails(l *domain.TaxLedger) map[string]string {
	return map[string]string{
		detailPeriod:       l.Period,
		detailIncome:       l.TotalIncome.String(),
		detailDeductions:   l.TotalDeductions.String(),
		detailBracket:      string(l.Bracket),
		detailEstimatedTax: l.EstimatedTax.String(),
	}
}

// recordTaxEntry adds income or a deduction. The period's ledger is opened on first use.
func (u *unit) recordTaxEntry(period, source string, amount decimal.Decimal, kind domain.EventKind) (domain.Entity, error) {
	period = strings.TrimSpace(period)

	ledger, err := u.tx.GetTaxLedger(u.ctx, u.req.OwnerID, period)
	if errors.Is(err, domain.ErrEntityNotFound) {
		ledger = &domain.TaxLedger{
			ID:      uuid.New(),
			OwnerID: u.req.OwnerID,
			Period:  period,
			Status:  domain.TaxStatusPending,
		}
	} else if err != nil {
		return nil, err
	}
	if err := rules.CanRecordTaxEntry(ledger); err != nil {
		return nil, err
	}

	if kind == domain.EventIncome {
		ledger.TotalIncome = ledger.TotalIncome.Add(amount)
	} else {
		ledger.TotalDeductions = ledger.TotalDeductions.Add(amount)
	}
	ledger.Recompute()
	ledger.LastUpdated = u.now

	if err := u.tx.SaveTaxLedger(u.ctx, ledger); err != nil {
		return nil, fmt.Errorf("failed to save tax ledger: %w", err)
	}

	details := u.taxDetails(ledger)
	details[detailSource] = source
	if err := u.emit(ledger, kind, amount, ledger.NetTaxable, details); err != nil {
		return nil, err
	}
	return ledger, nil
}

// fileTaxReturn closes the period; the event keeps a snapshot of the summary
func (u *unit) fileTaxReturn(p FileTaxReturn) (domain.Entity, error) {
	ledger, err := u.tx.GetTaxLedger(u.ctx, u.req.OwnerID, strings.TrimSpace(p.Period))
	if err != nil {
		return nil, err
	}
	if err := rules.CanFile(ledger); err != nil {
		return nil, err
	}

	filedAt := u.now
	ledger.Status = domain.TaxStatusFiled
	ledger.FiledAt = &filedAt
	ledger.LastUpdated = u.now

	if err := u.tx.SaveTaxLedger(u.ctx, ledger); err != nil {
		return nil, fmt.Errorf("failed to save tax ledger: %w", err)
	}

	details := u.taxDetails(ledger)
	details[detailStatus] = string(ledger.Status)
	if err := u.emit(ledger, domain.EventFiling, ledger.EstimatedTax, ledger.NetTaxable, details); err != nil {
		return nil, err
	}
	return ledger, nil
}
