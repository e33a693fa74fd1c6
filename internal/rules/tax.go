package rules

import "github.com/finverse/ledger-backend/internal/domain"

// PeriodOpen rejects entries against a filed period
var PeriodOpen = Rule[*domain.TaxLedger]{
	Name: "period_open",
	Check: func(t *domain.TaxLedger) error {
		if t.Status == domain.TaxStatusFiled {
			return domain.NewTaxPeriodClosedError(t.Ref(), t.Period)
		}
		return nil
	},
}

// CanRecordTaxEntry validates income and deduction entries
func CanRecordTaxEntry(t *domain.TaxLedger) error {
	return First(t, PeriodOpen)
}

// CanFile validates a filing. Filing is a one-way transition.
func CanFile(t *domain.TaxLedger) error {
	return First(t, PeriodOpen)
}
