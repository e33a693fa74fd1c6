package wire

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/usecase/ledger"
	"github.com/finverse/ledger-backend/internal/usecase/provisioning"
	"github.com/finverse/ledger-backend/internal/usecase/query"
	"github.com/finverse/ledger-backend/internal/usecase/schedule"
)

// Encoded values only use types structpb.NewStruct accepts: strings, bools,
// numbers, map[string]any and []any. Amounts are always decimal strings.

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

// EntityToMap encodes the state of any entity
func EntityToMap(e domain.Entity) map[string]any {
	ref := e.Ref()
	out := map[string]any{
		"kind":     string(ref.Kind),
		"id":       ref.ID.String(),
		"owner_id": e.Owner().String(),
		"version":  e.CurrentVersion(),
	}

	switch v := e.(type) {
	case *domain.Wallet:
		out["balance"] = formatDecimal(v.Balance)
		out["currency"] = v.Currency
		out["frozen"] = v.Frozen
		out["archived"] = v.Archived
		out["last_updated"] = formatTime(v.LastUpdated)
	case *domain.Portfolio:
		out["total_value"] = formatDecimal(v.TotalValue)
		out["invested_amount"] = formatDecimal(v.InvestedAmount)
		out["growth_pct"] = formatDecimal(v.GrowthPct)
		out["last_updated"] = formatTime(v.LastUpdated)
	case *domain.AssetHolding:
		out["portfolio_id"] = v.PortfolioID.String()
		out["symbol"] = v.Symbol
		out["quantity"] = formatDecimal(v.Quantity)
		out["cost_basis"] = formatDecimal(v.CostBasis)
		out["book_cost"] = formatDecimal(v.BookCost)
		out["current_price"] = formatDecimal(v.CurrentPrice)
		out["total_value"] = formatDecimal(v.TotalValue)
		out["last_updated"] = formatTime(v.LastUpdated)
	case *domain.Loan:
		out["principal"] = formatDecimal(v.Principal)
		out["interest_rate"] = formatDecimal(v.InterestRate)
		out["term_months"] = v.TermMonths
		out["remaining_balance"] = formatDecimal(v.RemainingBalance)
		out["total_repaid"] = formatDecimal(v.TotalRepaid)
		out["monthly_installment"] = formatDecimal(v.MonthlyInstallment)
		out["status"] = string(v.Status)
		out["loan_type"] = v.LoanType
		out["purpose"] = v.Purpose
		out["credit_score"] = v.CreditScore
		out["decision_reason"] = v.DecisionReason
		out["due_date"] = formatTime(v.DueDate)
		out["created_at"] = formatTime(v.CreatedAt)
		out["last_updated"] = formatTime(v.LastUpdated)
	case *domain.TaxLedger:
		out["period"] = v.Period
		out["total_income"] = formatDecimal(v.TotalIncome)
		out["total_deductions"] = formatDecimal(v.TotalDeductions)
		out["net_taxable"] = formatDecimal(v.NetTaxable)
		out["bracket"] = string(v.Bracket)
		out["estimated_tax"] = formatDecimal(v.EstimatedTax)
		out["status"] = string(v.Status)
		if v.FiledAt != nil {
			out["filed_at"] = formatTime(*v.FiledAt)
		}
		out["last_updated"] = formatTime(v.LastUpdated)
	}
	return out
}

// EventToMap encodes one history entry
func EventToMap(e *domain.LedgerEvent) map[string]any {
	details := make(map[string]any, len(e.Details))
	for k, v := range e.Details {
		details[k] = v
	}
	out := map[string]any{
		"id":                e.ID.String(),
		"sequence":          e.Sequence,
		"entity_id":         e.EntityID.String(),
		"entity_kind":       string(e.EntityKind),
		"owner_id":          e.OwnerID.String(),
		"kind":              string(e.Kind),
		"operation":         e.Operation,
		"amount":            formatDecimal(e.Amount),
		"resulting_balance": formatDecimal(e.ResultingBalance),
		"timestamp":         formatTime(e.Timestamp),
		"details":           details,
	}
	if e.IdempotencyKey != "" {
		out["idempotency_key"] = e.IdempotencyKey
	}
	return out
}

// EventsToList encodes events in the order given
func EventsToList(events []*domain.LedgerEvent) []any {
	out := make([]any, 0, len(events))
	for _, e := range events {
		out = append(out, EventToMap(e))
	}
	return out
}

// ResultToMap encodes the outcome of Apply
func ResultToMap(res *ledger.Result) map[string]any {
	return map[string]any{
		"operation": string(res.Operation),
		"state":     EntityToMap(res.State),
		"events":    EventsToList(res.Events),
		"replayed":  res.Replayed,
	}
}

// HistoryToMap encodes a page of history
func HistoryToMap(h *query.HistoryPage) map[string]any {
	return map[string]any{
		"events": EventsToList(h.Events),
		"total":  h.Total,
		"limit":  h.Page.Limit,
		"offset": h.Page.Offset,
	}
}

// CommentaryToList encodes advisory entries
func CommentaryToList(items []*domain.Commentary) []any {
	out := make([]any, 0, len(items))
	for _, c := range items {
		ids := make([]any, 0, len(c.EventIDs))
		for _, id := range c.EventIDs {
			ids = append(ids, id.String())
		}
		out = append(out, map[string]any{
			"id":         c.ID.String(),
			"owner_id":   c.OwnerID.String(),
			"operation":  c.Operation,
			"event_ids":  ids,
			"text":       c.Text,
			"available":  c.Available,
			"created_at": formatTime(c.CreatedAt),
		})
	}
	return out
}

// NetWorthToMap encodes the aggregated position of an owner
func NetWorthToMap(n *query.NetWorthResult) map[string]any {
	liquidity := make(map[string]any, len(n.Liquidity))
	for code, amount := range n.Liquidity {
		liquidity[code] = formatDecimal(amount)
	}
	return map[string]any{
		"liquidity":  liquidity,
		"equity":     formatDecimal(n.Equity),
		"invested":   formatDecimal(n.Invested),
		"debt":       formatDecimal(n.Debt),
		"growth_pct": formatDecimal(n.GrowthPct),
	}
}

// ScheduleToList encodes a repayment schedule
func ScheduleToList(installments []schedule.Installment) []any {
	out := make([]any, 0, len(installments))
	for _, i := range installments {
		out = append(out, map[string]any{
			"number":   i.Number,
			"due_date": formatTime(i.DueDate),
			"amount":   formatDecimal(i.Amount),
			"paid":     formatDecimal(i.Paid),
			"settled":  i.Settled(),
		})
	}
	return out
}

// AccountToMap encodes a provisioned account
func AccountToMap(a *provisioning.Account) map[string]any {
	return map[string]any{
		"wallet":    EntityToMap(a.Wallet),
		"portfolio": EntityToMap(a.Portfolio),
		"created":   a.Created,
	}
}
