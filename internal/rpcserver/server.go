// Package rpcserver wires the hand-built relayerpb service descriptors into
// a running *grpc.Server, grounded on beacon-chain/rpc/service.go's Start/
// Stop/Status shape and interceptor chain (recovery, prometheus, ocgrpc).
package rpcserver

import (
	"context"
	"fmt"
	"net"

	middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/plugin/ocgrpc"
	"google.golang.org/grpc"

	"github.com/blockrelay/relayer/internal/auth"
	"github.com/blockrelay/relayer/internal/relayer"
	"github.com/blockrelay/relayer/internal/tpuconfig"
	"github.com/blockrelay/relayer/relayerpb"
)

var log = logrus.WithField("prefix", "rpcserver")

// Config bundles the Server's dependencies.
type Config struct {
	Addr        string
	Auth        *auth.Service
	Interceptor *auth.Interceptor
	Core        *relayer.Core
	TpuPool     *tpuconfig.Pool
	Health      HealthSource
}

// HealthSource reports whether the relayer's upstream slot feed is current
// enough to accept new subscriptions.
type HealthSource interface {
	Healthy() bool
}

// Server owns the relayer's single gRPC listener, serving both the
// relayer.Auth and relayer.Relayer services.
type Server struct {
	cfg        Config
	ctx        context.Context
	cancel     context.CancelFunc
	listener   net.Listener
	grpcServer *grpc.Server
	listenErr  error
}

// New creates a Server ready to Start.
func New(cfg Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{cfg: cfg, ctx: ctx, cancel: cancel}
}

// Start binds the listener and begins serving in a background goroutine;
// callers check Status() to learn whether the bind succeeded.
func (s *Server) Start() {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		log.WithError(err).WithField("addr", s.cfg.Addr).Error("could not listen")
		s.listenErr = err
		return
	}
	s.listener = lis
	log.WithField("addr", s.cfg.Addr).Info("rpc server listening")

	recoveryOpt := recovery.WithRecoveryHandlerContext(func(ctx context.Context, p interface{}) error {
		log.WithField("panic", fmt.Sprintf("%v", p)).Error("recovered from panic in rpc handler")
		return fmt.Errorf("rpcserver: internal error")
	})

	opts := []grpc.ServerOption{
		grpc.StatsHandler(&ocgrpc.ServerHandler{}),
		grpc.StreamInterceptor(middleware.ChainStreamServer(
			recovery.StreamServerInterceptor(recoveryOpt),
			requestIDStreamInterceptor,
			grpc_prometheus.StreamServerInterceptor,
			s.cfg.Interceptor.Stream(),
		)),
		grpc.UnaryInterceptor(middleware.ChainUnaryServer(
			recovery.UnaryServerInterceptor(recoveryOpt),
			requestIDUnaryInterceptor,
			grpc_prometheus.UnaryServerInterceptor,
			s.cfg.Interceptor.Unary(),
		)),
	}
	s.grpcServer = grpc.NewServer(opts...)

	relayerpb.RegisterAuthServer(s.grpcServer, &authAdapter{svc: s.cfg.Auth})
	relayerpb.RegisterRelayerServer(s.grpcServer, &relayerAdapter{core: s.cfg.Core, pool: s.cfg.TpuPool, health: s.cfg.Health})
	grpc_prometheus.Register(s.grpcServer)

	go func() {
		if err := s.grpcServer.Serve(s.listener); err != nil {
			log.WithError(err).Error("rpc server stopped serving")
		}
	}()
}

// Stop gracefully drains in-flight RPCs.
func (s *Server) Stop() error {
	s.cancel()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	return nil
}

// Status returns any error encountered while binding the listener.
func (s *Server) Status() error {
	return s.listenErr
}
