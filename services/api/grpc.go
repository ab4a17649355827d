package api

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	pb "github.com/Cristiano-Saldanha-Uk/Scalping-Bot/proto"
)

// NewGRPCServer registers the service on a server that maps APIError to
// gRPC status codes
func NewGRPCServer(s *Service) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(statusInterceptor(s.logger)))
	pb.RegisterBacktestServiceServer(srv, s)
	return srv
}

func statusInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			if _, ok := status.FromError(err); !ok {
				apiErr := asAPIError(err)
				err = status.Error(apiErr.GRPCCode(), apiErr.Error())
			}
		}
		logger.Debug("grpc call",
			zap.String("method", info.FullMethod),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err))
		return resp, err
	}
}
