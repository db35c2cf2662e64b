package rpcserver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestRequestIDUnaryInterceptor_CallsHandler(t *testing.T) {
	called := false
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		called = true
		return "ok", nil
	}
	resp, err := requestIDUnaryInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/relayer.Auth/GenerateAuthChallenge"}, handler)
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, "ok", resp)
}

type fakeServerStream struct {
	grpc.ServerStream
}

func (fakeServerStream) Context() context.Context { return context.Background() }

func TestRequestIDStreamInterceptor_CallsHandler(t *testing.T) {
	called := false
	handler := func(srv interface{}, ss grpc.ServerStream) error {
		called = true
		return nil
	}
	err := requestIDStreamInterceptor(nil, fakeServerStream{}, &grpc.StreamServerInfo{FullMethod: "/relayer.Relayer/SubscribePackets"}, handler)
	require.NoError(t, err)
	require.True(t, called)
}
