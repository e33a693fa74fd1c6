// Package ledgerv1 declares the finverse.ledger.v1.LedgerService gRPC service.
// Every method exchanges google.protobuf.Struct messages, so the service needs
// no generated message types; the descriptor below plays the role protoc-gen-go-grpc
// output would.
package ledgerv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "finverse.ledger.v1.LedgerService"

const (
	LedgerService_Apply_FullMethodName                = "/" + ServiceName + "/Apply"
	LedgerService_GetState_FullMethodName             = "/" + ServiceName + "/GetState"
	LedgerService_ListHistory_FullMethodName          = "/" + ServiceName + "/ListHistory"
	LedgerService_GetCommentary_FullMethodName        = "/" + ServiceName + "/GetCommentary"
	LedgerService_Provision_FullMethodName            = "/" + ServiceName + "/Provision"
	LedgerService_GetNetWorth_FullMethodName          = "/" + ServiceName + "/GetNetWorth"
	LedgerService_GetRepaymentSchedule_FullMethodName = "/" + ServiceName + "/GetRepaymentSchedule"
)

// LedgerServiceServer is the server API for LedgerService
type LedgerServiceServer interface {
	Apply(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCommentary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Provision(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetNetWorth(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRepaymentSchedule(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedLedgerServiceServer can be embedded to have forward compatible implementations
type UnimplementedLedgerServiceServer struct{}

func (UnimplementedLedgerServiceServer) Apply(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Apply not implemented")
}
func (UnimplementedLedgerServiceServer) GetState(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetState not implemented")
}
func (UnimplementedLedgerServiceServer) ListHistory(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListHistory not implemented")
}
func (UnimplementedLedgerServiceServer) GetCommentary(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetCommentary not implemented")
}
func (UnimplementedLedgerServiceServer) Provision(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Provision not implemented")
}
func (UnimplementedLedgerServiceServer) GetNetWorth(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetNetWorth not implemented")
}
func (UnimplementedLedgerServiceServer) GetRepaymentSchedule(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetRepaymentSchedule not implemented")
}

// RegisterLedgerServiceServer registers srv on s
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerService_ServiceDesc, srv)
}

type unaryMethod func(LedgerServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// handler adapts a server method to grpc.MethodHandler, running interceptors when present
func handler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(LedgerServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

// LedgerService_ServiceDesc is the grpc.ServiceDesc for LedgerService
var LedgerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Apply", Handler: handler(LedgerService_Apply_FullMethodName, LedgerServiceServer.Apply)},
		{MethodName: "GetState", Handler: handler(LedgerService_GetState_FullMethodName, LedgerServiceServer.GetState)},
		{MethodName: "ListHistory", Handler: handler(LedgerService_ListHistory_FullMethodName, LedgerServiceServer.ListHistory)},
		{MethodName: "GetCommentary", Handler: handler(LedgerService_GetCommentary_FullMethodName, LedgerServiceServer.GetCommentary)},
		{MethodName: "Provision", Handler: handler(LedgerService_Provision_FullMethodName, LedgerServiceServer.Provision)},
		{MethodName: "GetNetWorth", Handler: handler(LedgerService_GetNetWorth_FullMethodName, LedgerServiceServer.GetNetWorth)},
		{MethodName: "GetRepaymentSchedule", Handler: handler(LedgerService_GetRepaymentSchedule_FullMethodName, LedgerServiceServer.GetRepaymentSchedule)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "finverse/ledger/v1/ledger.proto",
}

// LedgerServiceClient is the client API for LedgerService
type LedgerServiceClient interface {
	Apply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetCommentary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Provision(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetNetWorth(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetRepaymentSchedule(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type ledgerServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerServiceClient creates a client over cc
func NewLedgerServiceClient(cc grpc.ClientConnInterface) LedgerServiceClient {
	return &ledgerServiceClient{cc: cc}
}

func (c *ledgerServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerServiceClient) Apply(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, LedgerService_Apply_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetState(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, LedgerService_GetState_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) ListHistory(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, LedgerService_ListHistory_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetCommentary(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, LedgerService_GetCommentary_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) Provision(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, LedgerService_Provision_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetNetWorth(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, LedgerService_GetNetWorth_FullMethodName, in, opts)
}

func (c *ledgerServiceClient) GetRepaymentSchedule(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, LedgerService_GetRepaymentSchedule_FullMethodName, in, opts)
}
