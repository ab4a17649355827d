package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	pb "github.com/Cristiano-Saldanha-Uk/Scalping-Bot/proto"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

func dialService(t *testing.T, s *Service) pb.BacktestServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(s)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return pb.NewBacktestServiceClient(conn)
}

func TestGRPCRunBacktest(t *testing.T) {
	client := dialService(t, newTestService(t, staticProvider{series: []engine.Series{oneWinningTrade("AAPL")}}))

	resp, err := client.RunBacktest(context.Background(), balancedRequest())
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int32(1), resp.Results[0].Wins)
	assert.NotEmpty(t, resp.JobId)
}

func TestGRPCErrorCodes(t *testing.T) {
	client := dialService(t, newTestService(t, staticProvider{}))

	_, err := client.RunBacktest(context.Background(), &pb.BacktestRequest{})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Contains(t, st.Message(), "symbols required")
}
