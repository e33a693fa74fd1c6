// Command ledgerctl is an operator tool that talks to the ledger over gRPC
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/finverse/ledger-backend/internal/adapter/grpc/ledgerv1"
)

var (
	addr    = flag.String("addr", envOr("LEDGER_ADDR", "localhost:8080"), "ledger gRPC address")
	token   = flag.String("token", envOr("API_TOKEN", "dev-token"), "API token")
	timeout = flag.Duration("timeout", 10*time.Second, "request timeout")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&provisionCmd{}, "accounts")
	subcommands.Register(&applyCmd{}, "ledger")
	subcommands.Register(&stateCmd{}, "queries")
	subcommands.Register(&historyCmd{}, "queries")
	subcommands.Register(&netWorthCmd{}, "queries")
	subcommands.Register(&scheduleCmd{}, "queries")
	subcommands.Register(&commentaryCmd{}, "queries")

	flag.Parse()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", *addr, err)
		os.Exit(int(subcommands.ExitFailure))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+*token)

	status := subcommands.Execute(ctx, ledgerv1.NewLedgerServiceClient(conn))
	cancel()
	conn.Close()
	os.Exit(int(status))
}
