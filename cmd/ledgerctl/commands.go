package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/finverse/ledger-backend/internal/adapter/grpc/ledgerv1"
	"github.com/finverse/ledger-backend/internal/currency"
)

// clientFrom extracts the client main passes to subcommands.Execute
func clientFrom(args []interface{}) ledgerv1.LedgerServiceClient {
	return args[0].(ledgerv1.LedgerServiceClient)
}

// call runs one RPC and prints its response, returning the exit status
func call(out io.Writer, req map[string]any, rpc func(*structpb.Struct) (*structpb.Struct, error)) subcommands.ExitStatus {
	in, err := structpb.NewStruct(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid request: %v\n", err)
		return subcommands.ExitUsageError
	}

	resp, err := rpc(in)
	if err != nil {
		st := status.Convert(err)
		fmt.Fprintf(os.Stderr, "%s: %s\n", st.Code(), st.Message())
		return subcommands.ExitFailure
	}

	if err := render(out, resp.AsMap()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to render response: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// render prints a one line summary for wallet states, then the full JSON
func render(out io.Writer, resp map[string]any) error {
	if line := summary(resp); line != "" {
		fmt.Fprintln(out, line)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// summary formats the wallet balance of a response with its currency symbol
func summary(resp map[string]any) string {
	state := resp
	if s, ok := resp["state"].(map[string]any); ok {
		state = s
	} else if w, ok := resp["wallet"].(map[string]any); ok {
		state = w
	}
	if state["kind"] != "wallet" {
		return ""
	}

	balance, _ := state["balance"].(string)
	code, _ := state["currency"].(string)
	amount, err := decimal.NewFromString(balance)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Balance: %s", currency.Format(amount, code))
}

// parseParams accepts either a JSON object or key=value pairs
func parseParams(raw string, pairs []string) (map[string]any, error) {
	params := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return nil, fmt.Errorf("-params must be a JSON object: %w", err)
		}
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		params[k] = v
	}
	return params, nil
}

type provisionCmd struct {
	owner    string
	currency string
}

func (*provisionCmd) Name() string     { return "provision" }
func (*provisionCmd) Synopsis() string { return "create the wallet and portfolio of an owner" }
func (*provisionCmd) Usage() string {
	return `provision -owner <uuid> [-currency KES]

  Creates an empty wallet in the currency and an empty portfolio. Safe to repeat.
`
}

func (c *provisionCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "owner id")
	f.StringVar(&c.currency, "currency", "", "ISO 4217 currency code, defaults to KES")
}

func (c *provisionCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	client := clientFrom(args)
	return call(os.Stdout, map[string]any{"owner_id": c.owner, "currency": c.currency}, func(in *structpb.Struct) (*structpb.Struct, error) {
		return client.Provision(ctx, in)
	})
}

type applyCmd struct {
	owner  string
	op     string
	key    string
	params string
}

func (*applyCmd) Name() string     { return "apply" }
func (*applyCmd) Synopsis() string { return "apply a ledger operation" }
func (*applyCmd) Usage() string {
	return `apply -owner <uuid> -op <operation> [-key <idempotency key>] [-params '{...}'] [key=value ...]

  Runs one operation atomically. Operations: debit, credit, transfer, freeze_wallet,
  unfreeze_wallet, buy_asset, sell_asset, mark_price, originate_loan,
  apply_loan_repayment, record_income, record_deduction, file_tax_return.

  Example:
    ledgerctl apply -owner $OWNER -op debit -key bill-42 wallet_id=$WALLET amount=500
`
}

func (c *applyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "owner id")
	f.StringVar(&c.op, "op", "", "operation name")
	f.StringVar(&c.key, "key", "", "idempotency key")
	f.StringVar(&c.params, "params", "", "operation parameters as a JSON object")
}

func (c *applyCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if c.op == "" {
		fmt.Fprintln(os.Stderr, "-op is required")
		return subcommands.ExitUsageError
	}
	params, err := parseParams(c.params, f.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	client := clientFrom(args)
	req := map[string]any{
		"owner_id":        c.owner,
		"operation":       c.op,
		"idempotency_key": c.key,
		"params":          params,
	}
	return call(os.Stdout, req, func(in *structpb.Struct) (*structpb.Struct, error) {
		return client.Apply(ctx, in)
	})
}

type stateCmd struct {
	kind string
	id   string
}

func (*stateCmd) Name() string     { return "state" }
func (*stateCmd) Synopsis() string { return "show the current state of an entity" }
func (*stateCmd) Usage() string {
	return `state -kind <wallet|holding|portfolio|loan|tax_ledger> -id <uuid>
`
}

func (c *stateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "wallet", "entity kind")
	f.StringVar(&c.id, "id", "", "entity id")
}

func (c *stateCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	client := clientFrom(args)
	return call(os.Stdout, map[string]any{"kind": c.kind, "id": c.id}, func(in *structpb.Struct) (*structpb.Struct, error) {
		return client.GetState(ctx, in)
	})
}

type historyCmd struct {
	kind   string
	id     string
	limit  int
	offset int
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list the events of an entity, newest first" }
func (*historyCmd) Usage() string {
	return `history -kind <kind> -id <uuid> [-limit 50] [-offset 0]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "wallet", "entity kind")
	f.StringVar(&c.id, "id", "", "entity id")
	f.IntVar(&c.limit, "limit", 50, "page size")
	f.IntVar(&c.offset, "offset", 0, "events to skip")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	client := clientFrom(args)
	req := map[string]any{"kind": c.kind, "id": c.id, "limit": c.limit, "offset": c.offset}
	return call(os.Stdout, req, func(in *structpb.Struct) (*structpb.Struct, error) {
		return client.ListHistory(ctx, in)
	})
}

type netWorthCmd struct {
	owner string
}

func (*netWorthCmd) Name() string     { return "networth" }
func (*netWorthCmd) Synopsis() string { return "summarize the balances of an owner" }
func (*netWorthCmd) Usage() string {
	return `networth -owner <uuid>
`
}

func (c *netWorthCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "owner id")
}

func (c *netWorthCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	client := clientFrom(args)
	return call(os.Stdout, map[string]any{"owner_id": c.owner}, func(in *structpb.Struct) (*structpb.Struct, error) {
		return client.GetNetWorth(ctx, in)
	})
}

type scheduleCmd struct {
	loan string
}

func (*scheduleCmd) Name() string     { return "schedule" }
func (*scheduleCmd) Synopsis() string { return "show the repayment schedule of a loan" }
func (*scheduleCmd) Usage() string {
	return `schedule -loan <uuid>
`
}

func (c *scheduleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.loan, "loan", "", "loan id")
}

func (c *scheduleCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	client := clientFrom(args)
	return call(os.Stdout, map[string]any{"loan_id": c.loan}, func(in *structpb.Struct) (*structpb.Struct, error) {
		return client.GetRepaymentSchedule(ctx, in)
	})
}

type commentaryCmd struct {
	owner string
	limit int
}

func (*commentaryCmd) Name() string     { return "commentary" }
func (*commentaryCmd) Synopsis() string { return "show the latest advisory commentary of an owner" }
func (*commentaryCmd) Usage() string {
	return `commentary -owner <uuid> [-limit 20]
`
}

func (c *commentaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.owner, "owner", "", "owner id")
	f.IntVar(&c.limit, "limit", 20, "number of entries")
}

func (c *commentaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	client := clientFrom(args)
	return call(os.Stdout, map[string]any{"owner_id": c.owner, "limit": c.limit}, func(in *structpb.Struct) (*structpb.Struct, error) {
		return client.GetCommentary(ctx, in)
	})
}
