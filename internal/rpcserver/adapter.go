package rpcserver

import (
	"context"
	"net"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/blockrelay/relayer/internal/auth"
	"github.com/blockrelay/relayer/internal/base58"
	"github.com/blockrelay/relayer/internal/relayer"
	"github.com/blockrelay/relayer/internal/tpuconfig"
	"github.com/blockrelay/relayer/internal/types"
	"github.com/blockrelay/relayer/relayerpb"
)

// authAdapter exposes internal/auth.Service as relayerpb.AuthServer.
type authAdapter struct {
	svc *auth.Service
}

func (a *authAdapter) GenerateAuthChallenge(ctx context.Context, req *relayerpb.ChallengeRequest) (*relayerpb.ChallengeResponse, error) {
	challenge, err := a.svc.IssueChallenge(clientIP(ctx), req.Pubkey, auth.Role(req.Role))
	if err != nil {
		return nil, mapAuthError(err)
	}
	return &relayerpb.ChallengeResponse{Challenge: challenge}, nil
}

func (a *authAdapter) GenerateAuthTokens(ctx context.Context, req *relayerpb.TokensRequest) (*relayerpb.TokensResponse, error) {
	tokens, err := a.svc.GenerateTokens(clientIP(ctx), req.Pubkey, req.ExpectedChallengeString, req.SignedChallenge)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return &relayerpb.TokensResponse{
		AccessToken:           tokens.AccessToken,
		AccessTokenExpiresAt:  tokens.AccessTokenExpiresAt.Unix(),
		RefreshToken:          tokens.RefreshToken,
		RefreshTokenExpiresAt: tokens.RefreshTokenExpiresAt.Unix(),
	}, nil
}

func (a *authAdapter) RefreshAccessToken(ctx context.Context, req *relayerpb.RefreshRequest) (*relayerpb.RefreshResponse, error) {
	access, expiresAt, err := a.svc.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		return nil, mapAuthError(err)
	}
	return &relayerpb.RefreshResponse{AccessToken: access, ExpiresAt: expiresAt.Unix()}, nil
}

func mapAuthError(err error) error {
	authErr, ok := err.(*auth.Error)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	switch authErr.Kind {
	case auth.KindResourceExhausted:
		return status.Error(codes.ResourceExhausted, authErr.Msg)
	case auth.KindInvalidArgument:
		return status.Error(codes.InvalidArgument, authErr.Msg)
	case auth.KindPermissionDenied:
		return status.Error(codes.PermissionDenied, authErr.Msg)
	default:
		return status.Error(codes.Internal, authErr.Msg)
	}
}

func clientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// relayerAdapter exposes the relayer core and the TPU config pool as
// relayerpb.RelayerServer.
type relayerAdapter struct {
	core   *relayer.Core
	pool   *tpuconfig.Pool
	health HealthSource
}

func (r *relayerAdapter) GetTpuConfigs(ctx context.Context, req *relayerpb.TpuConfigsRequest) (*relayerpb.TpuConfigsResponse, error) {
	resp, ok := r.pool.Next()
	if !ok {
		return nil, status.Error(codes.Internal, "rpcserver: no tpu endpoints configured")
	}
	return &resp, nil
}

func (r *relayerAdapter) SubscribePackets(req *relayerpb.SubscribePacketsRequest, stream relayerpb.Relayer_SubscribePacketsServer) error {
	if r.health != nil && !r.health.Healthy() {
		return status.Error(codes.Internal, "rpcserver: relayer is unhealthy, rejecting new subscription")
	}
	identity, ok := auth.IdentityFromContext(stream.Context())
	if !ok {
		return status.Error(codes.Unauthenticated, "rpcserver: missing verified identity")
	}
	rawPubkey, err := base58.Decode(identity.Pubkey)
	if err != nil || len(rawPubkey) != 32 {
		return status.Error(codes.InvalidArgument, "rpcserver: malformed identity pubkey")
	}
	var id types.ValidatorIdentity
	copy(id[:], rawPubkey)

	queue := relayer.NewSubscriberQueue()
	select {
	case r.core.Subscriptions() <- relayer.SubscriptionRequest{ID: id, Queue: queue}:
	case <-stream.Context().Done():
		return stream.Context().Err()
	}

	for {
		select {
		case <-stream.Context().Done():
			queue.MarkClosed()
			return nil
		case msg, ok := <-queue.Receive():
			if !ok {
				return nil
			}
			if err := stream.Send(toSubscribeUpdate(msg)); err != nil {
				queue.MarkClosed()
				return err
			}
		}
	}
}

func toSubscribeUpdate(msg relayer.Message) *relayerpb.SubscribeUpdate {
	if msg.IsHeartbeat {
		return &relayerpb.SubscribeUpdate{Heartbeat: true}
	}
	packets := make([]relayerpb.PacketMessage, len(msg.Batch.Packets))
	for i, p := range msg.Batch.Packets {
		packets[i] = relayerpb.PacketMessage{Discard: p.Discard, Forwarded: p.Forwarded, Payload: p.Payload}
	}
	return &relayerpb.SubscribeUpdate{Packets: packets}
}
