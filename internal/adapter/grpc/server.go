package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/finverse/ledger-backend/internal/adapter/grpc/ledgerv1"
	"github.com/finverse/ledger-backend/internal/adapter/wire"
	"github.com/finverse/ledger-backend/internal/domain"
	"github.com/finverse/ledger-backend/internal/usecase/ledger"
	"github.com/finverse/ledger-backend/internal/usecase/provisioning"
	"github.com/finverse/ledger-backend/internal/usecase/query"
)

// Server implements the LedgerService gRPC server
type Server struct {
	ledgerv1.UnimplementedLedgerServiceServer

	Engine      *ledger.Engine
	Query       *query.Service
	Provisioner *provisioning.Provisioner
	Retry       ledger.RetryPolicy
	Logger      *slog.Logger
}

// NewServer creates a new gRPC server instance
func NewServer(
	engine *ledger.Engine,
	queryService *query.Service,
	provisioner *provisioning.Provisioner,
	retry ledger.RetryPolicy,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Engine:      engine,
		Query:       queryService,
		Provisioner: provisioner,
		Retry:       retry,
		Logger:      logger,
	}
}

// Apply handles the Apply RPC.
// Request: {owner_id, operation, idempotency_key?, params: {...}}
func (s *Server) Apply(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env := wire.NewEnvelope(req.AsMap())
	ownerID := env.RequiredID("owner_id")
	opName := env.String("operation")
	key := env.String("idempotency_key")
	fields := env.Object("params")
	if err := env.Err(); err != nil {
		return nil, s.mapError(err)
	}

	op, err := wire.ParseOperation(opName)
	if err != nil {
		return nil, s.mapError(err)
	}
	params, err := wire.ParseParams(op, fields)
	if err != nil {
		return nil, s.mapError(err)
	}

	res, err := s.Engine.ApplyWithRetry(ctx, ledger.Request{
		OwnerID:        ownerID,
		IdempotencyKey: key,
		Params:         params,
	}, s.Retry)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(wire.ResultToMap(res))
}

// GetState handles the GetState RPC. Request: {kind, id}
func (s *Server) GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env := wire.NewEnvelope(req.AsMap())
	ref, err := wire.ParseRef(env.String("kind"), env.String("id"))
	if err != nil {
		return nil, s.mapError(err)
	}

	entity, err := s.Query.GetCurrentState(ctx, ref)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(wire.EntityToMap(entity))
}

// ListHistory handles the ListHistory RPC. Request: {kind, id, limit?, offset?}
func (s *Server) ListHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env := wire.NewEnvelope(req.AsMap())
	kind, id := env.String("kind"), env.String("id")
	page := domain.Page{Limit: env.Int("limit"), Offset: env.Int("offset")}
	if err := env.Err(); err != nil {
		return nil, s.mapError(err)
	}
	ref, err := wire.ParseRef(kind, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	history, err := s.Query.ListHistory(ctx, ref, page)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(wire.HistoryToMap(history))
}

// GetCommentary handles the GetCommentary RPC. Request: {owner_id, limit?}
func (s *Server) GetCommentary(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env := wire.NewEnvelope(req.AsMap())
	ownerID := env.RequiredID("owner_id")
	limit := env.Int("limit")
	if err := env.Err(); err != nil {
		return nil, s.mapError(err)
	}

	items, err := s.Query.ListCommentary(ctx, ownerID, limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(map[string]any{"commentary": wire.CommentaryToList(items)})
}

// Provision handles the Provision RPC. Request: {owner_id, currency?}
func (s *Server) Provision(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env := wire.NewEnvelope(req.AsMap())
	ownerID := env.RequiredID("owner_id")
	code := env.String("currency")
	if err := env.Err(); err != nil {
		return nil, s.mapError(err)
	}

	account, err := s.Provisioner.Provision(ctx, ownerID, code)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(wire.AccountToMap(account))
}

// GetNetWorth handles the GetNetWorth RPC. Request: {owner_id}
func (s *Server) GetNetWorth(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env := wire.NewEnvelope(req.AsMap())
	ownerID := env.RequiredID("owner_id")
	if err := env.Err(); err != nil {
		return nil, s.mapError(err)
	}

	netWorth, err := s.Query.GetNetWorth(ctx, ownerID)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(wire.NetWorthToMap(netWorth))
}

// GetRepaymentSchedule handles the GetRepaymentSchedule RPC. Request: {loan_id}
func (s *Server) GetRepaymentSchedule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	env := wire.NewEnvelope(req.AsMap())
	loanID := env.RequiredID("loan_id")
	if err := env.Err(); err != nil {
		return nil, s.mapError(err)
	}

	installments, err := s.Query.GetRepaymentSchedule(ctx, loanID)
	if err != nil {
		return nil, s.mapError(err)
	}

	return toStruct(map[string]any{"installments": wire.ScheduleToList(installments)})
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

// mapError converts domain errors to gRPC status errors.
// Errors that are not ledger errors never reach the caller verbatim.
func (s *Server) mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidAmount):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrEntityNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientHoldings),
		errors.Is(err, domain.ErrFrozenEntity),
		errors.Is(err, domain.ErrLoanNotActive),
		errors.Is(err, domain.ErrTaxPeriodClosed):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrConcurrentModification):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	s.Logger.Error("ledger request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
