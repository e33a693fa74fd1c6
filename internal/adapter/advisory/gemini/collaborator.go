// Package gemini generates post-commit commentary with Google's Gemini models
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/finverse/ledger-backend/internal/currency"
	"github.com/finverse/ledger-backend/internal/domain"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

const systemInstruction = `You are a financial advisor inside a personal finance dashboard.
You receive one operation that has already been settled on the user's ledger.
Reply with at most three short sentences of practical savings or investment advice
that relate to that operation. Never question whether the operation happened,
never ask for more data and never use markdown.`

// Generator is the part of *genai.Models the collaborator needs
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Collaborator implements domain.AdvisoryCollaborator on top of Gemini
type Collaborator struct {
	Models Generator
	Model  string
	Config *genai.GenerateContentConfig
}

var _ domain.AdvisoryCollaborator = (*Collaborator)(nil)

// NewCollaborator creates a Gemini client. The API key is read by genai from GEMINI_API_KEY.
func NewCollaborator(ctx context.Context, model string) (*Collaborator, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	return newCollaborator(client.Models, model), nil
}

func newCollaborator(models Generator, model string) *Collaborator {
	if model == "" {
		model = DefaultModel
	}
	return &Collaborator{
		Models: models,
		Model:  model,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		},
	}
}

// GenerateCommentary asks the model for advice on a settled operation
func (c *Collaborator) GenerateCommentary(ctx context.Context, in domain.AdvisoryContext) (string, error) {
	resp, err := c.Models.GenerateContent(ctx, c.Model, genai.Text(BuildPrompt(in)), c.Config)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("empty response from gemini")
	}
	return text, nil
}

// BuildPrompt renders the settled operation as plain text for the model
func BuildPrompt(in domain.AdvisoryContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Operation: %s\n", in.Operation)

	if in.State != nil {
		sb.WriteString("Resulting state:\n")
		writeState(&sb, in.State)
	}

	if len(in.Events) > 0 {
		sb.WriteString("Ledger events:\n")
		for _, e := range in.Events {
			fmt.Fprintf(&sb, "- %s on %s: amount %s, resulting balance %s", e.Kind, e.EntityKind, e.Amount, e.ResultingBalance)
			if desc := e.Details["description"]; desc != "" {
				fmt.Fprintf(&sb, " (%s)", desc)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func writeState(sb *strings.Builder, state domain.Entity) {
	switch v := state.(type) {
	case *domain.Wallet:
		fmt.Fprintf(sb, "- wallet balance %s", currency.Format(v.Balance, v.Currency))
		if v.Frozen {
			sb.WriteString(", frozen")
		}
		sb.WriteString("\n")
	case *domain.Portfolio:
		fmt.Fprintf(sb, "- portfolio value %s, invested %s, growth %s%%\n",
			currency.Format(v.TotalValue, "USD"), currency.Format(v.InvestedAmount, "USD"), v.GrowthPct.StringFixed(2))
	case *domain.AssetHolding:
		fmt.Fprintf(sb, "- %s position of %s units at %s\n",
			v.Symbol, v.Quantity, currency.Format(v.CurrentPrice, "USD"))
	case *domain.Loan:
		fmt.Fprintf(sb, "- loan %s: principal %s, remaining %s, rate %s%%, %d months\n",
			v.Status, v.Principal.StringFixed(2), v.RemainingBalance.StringFixed(2),
			v.InterestRate.Shift(2).StringFixed(2), v.TermMonths)
	case *domain.TaxLedger:
		fmt.Fprintf(sb, "- tax period %s: net taxable %s, bracket %s, estimated tax %s, %s\n",
			v.Period, v.NetTaxable.StringFixed(2), v.Bracket, v.EstimatedTax.StringFixed(2), v.Status)
	}
}
