package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const BacktestService_RunBacktest_FullMethodName = "/scalper.BacktestService/RunBacktest"

type BacktestServiceServer interface {
	RunBacktest(context.Context, *BacktestRequest) (*BacktestResponse, error)
}

type UnimplementedBacktestServiceServer struct{}

func (UnimplementedBacktestServiceServer) RunBacktest(context.Context, *BacktestRequest) (*BacktestResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RunBacktest not implemented")
}

func RegisterBacktestServiceServer(s grpc.ServiceRegistrar, srv BacktestServiceServer) {
	s.RegisterService(&BacktestService_ServiceDesc, srv)
}

func _BacktestService_RunBacktest_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BacktestRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BacktestServiceServer).RunBacktest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: BacktestService_RunBacktest_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BacktestServiceServer).RunBacktest(ctx, req.(*BacktestRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var BacktestService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "scalper.BacktestService",
	HandlerType: (*BacktestServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RunBacktest",
			Handler:    _BacktestService_RunBacktest_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scalper.proto",
}

type BacktestServiceClient interface {
	RunBacktest(ctx context.Context, in *BacktestRequest, opts ...grpc.CallOption) (*BacktestResponse, error)
}

type backtestServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBacktestServiceClient(cc grpc.ClientConnInterface) BacktestServiceClient {
	return &backtestServiceClient{cc}
}

func (c *backtestServiceClient) RunBacktest(ctx context.Context, in *BacktestRequest, opts ...grpc.CallOption) (*BacktestResponse, error) {
	out := new(BacktestResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, BacktestService_RunBacktest_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
