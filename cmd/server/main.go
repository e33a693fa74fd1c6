package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/finverse/ledger-backend/internal/adapter/advisory/gemini"
	grpcadapter "github.com/finverse/ledger-backend/internal/adapter/grpc"
	"github.com/finverse/ledger-backend/internal/adapter/grpc/ledgerv1"
	"github.com/finverse/ledger-backend/internal/adapter/repository/memory"
	"github.com/finverse/ledger-backend/internal/adapter/repository/postgres"
	"github.com/finverse/ledger-backend/internal/adapter/rest"
	"github.com/finverse/ledger-backend/internal/config"
	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/usecase/advisory"
	"github.com/finverse/ledger-backend/internal/usecase/ledger"
	"github.com/finverse/ledger-backend/internal/usecase/provisioning"
	"github.com/finverse/ledger-backend/internal/usecase/query"
)

const shutdownTimeout = 15 * time.Second

// ledgerStore is implemented by both store drivers
type ledgerStore interface {
	domain.Store
	domain.StateReader
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// 1. Setup Store
	var (
		store          ledgerStore
		commentaryRepo domain.CommentaryRepository
	)
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := connectWithRetry(ctx, cfg.DBConnStr, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		store = postgres.NewStore(db)
		commentaryRepo = postgres.NewCommentaryRepository(db)
	default:
		logger.Warn("using the in-memory store, state is lost on restart")
		store = memory.NewStore()
		commentaryRepo = memory.NewCommentaryRepository()
	}

	// 2. Advisory collaborator (optional, post-commit only)
	var (
		observer   ledger.CommitObserver
		dispatcher *advisory.Dispatcher
	)
	if cfg.AdvisoryEnabled {
		collaborator, err := gemini.NewCollaborator(ctx, cfg.GeminiModel)
		if err != nil {
			return err
		}
		dispatcher = advisory.NewDispatcher(collaborator, commentaryRepo, logger, advisory.Config{
			Workers:   cfg.AdvisoryWorkers,
			QueueSize: cfg.AdvisoryQueue,
			Timeout:   cfg.AdvisoryTimeout,
		})
		dispatcher.Start()
		observer = dispatcher
	} else {
		logger.Info("GEMINI_API_KEY not set, advisory commentary disabled")
	}

	// 3. Initialize Services (Use Cases)
	engine := ledger.NewEngine(store, observer, logger)
	retry := ledger.RetryPolicy{Attempts: cfg.RetryAttempts, Backoff: cfg.RetryBackoff}
	queryService := query.NewService(store, commentaryRepo)
	provisioner := provisioning.NewProvisioner(store)

	// 4. gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.RecoveryInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)
	ledgerv1.RegisterLedgerServiceServer(grpcServer, grpcadapter.NewServer(engine, queryService, provisioner, retry, logger))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	// 5. REST Server
	app := rest.NewApp(rest.Deps{
		Engine:      engine,
		Query:       queryService,
		Provisioner: provisioner,
		Retry:       retry,
		Logger:      logger,
		APIToken:    cfg.APIToken,
	})

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpclib.ErrServerStopped) {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			errCh <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down gracefully", "signal", sig.String())
	case serveErr = <-errCh:
		logger.Error("server failed, shutting down", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown failed", "error", err)
	}

	// Drain pending commentary after the transports stop accepting commits
	if dispatcher != nil {
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			logger.Warn("advisory dispatcher did not drain", "error", err)
		}
	}

	return serveErr
}

// connectWithRetry waits for Postgres to accept connections
func connectWithRetry(ctx context.Context, dsn string, logger *slog.Logger) (*postgres.DB, error) {
	const attempts = 5

	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := postgres.NewDB(dsn)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warn("database not ready", "attempt", i, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i) * time.Second):
		}
	}
	return nil, lastErr
}
