package rpcserver

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
)

// requestIDUnaryInterceptor logs one debug line per unary call carrying a
// fresh request id and the method name. The id is not attached to the
// call's context, so the handler's own log lines do not carry it.
func requestIDUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	reqLog := log.WithField("request_id", uuid.New().String()).WithField("method", info.FullMethod)
	reqLog.Debug("handling unary rpc")
	return handler(ctx, req)
}

// requestIDStreamInterceptor does the same for streaming calls.
func requestIDStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	reqLog := log.WithField("request_id", uuid.New().String()).WithField("method", info.FullMethod)
	reqLog.Debug("handling stream rpc")
	return handler(srv, ss)
}
