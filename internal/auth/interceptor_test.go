package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func testSigner(t *testing.T) *TokenSigner {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewTokenSigner(key)
}

func withBearer(token string) context.Context {
	md := metadata.Pairs("authorization", "Bearer "+token)
	return metadata.NewIncomingContext(context.Background(), md)
}

func TestInterceptor_Unary_BypassesAuthService(t *testing.T) {
	i := NewInterceptor(testSigner(t))
	called := false
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		called = true
		return nil, nil
	}
	_, err := i.Unary()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/relayer.Auth/GenerateAuthChallenge"}, handler)
	require.NoError(t, err)
	require.True(t, called)
}

func TestInterceptor_Unary_RejectsMissingToken(t *testing.T) {
	i := NewInterceptor(testSigner(t))
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil }
	_, err := i.Unary()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/relayer.Relayer/GetTpuConfigs"}, handler)
	require.Error(t, err)
}

func TestInterceptor_Unary_AcceptsValidToken(t *testing.T) {
	signer := testSigner(t)
	i := NewInterceptor(signer)

	token, err := signer.Mint(TokenClaims{ClientIP: "1.2.3.4", ClientPubkey: "abc", ExpiresAt: time.Now().Add(time.Minute).Unix()})
	require.NoError(t, err)

	var gotIdentity Identity
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		id, ok := IdentityFromContext(ctx)
		require.True(t, ok)
		gotIdentity = id
		return nil, nil
	}
	_, err = i.Unary()(withBearer(token), nil, &grpc.UnaryServerInfo{FullMethod: "/relayer.Relayer/GetTpuConfigs"}, handler)
	require.NoError(t, err)
	require.Equal(t, "1.2.3.4", gotIdentity.ClientIP)
	require.Equal(t, "abc", gotIdentity.Pubkey)
}

func TestInterceptor_Unary_RejectsExpiredToken(t *testing.T) {
	signer := testSigner(t)
	i := NewInterceptor(signer)

	token, err := signer.Mint(TokenClaims{ClientIP: "1.2.3.4", ClientPubkey: "abc", ExpiresAt: time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, err)

	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil }
	_, err = i.Unary()(withBearer(token), nil, &grpc.UnaryServerInfo{FullMethod: "/relayer.Relayer/GetTpuConfigs"}, handler)
	require.Error(t, err)
}

func TestInterceptor_Unary_RejectsGarbageToken(t *testing.T) {
	i := NewInterceptor(testSigner(t))
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil }
	_, err := i.Unary()(withBearer("not-a-jwt"), nil, &grpc.UnaryServerInfo{FullMethod: "/relayer.Relayer/GetTpuConfigs"}, handler)
	require.Error(t, err)
}

func TestInterceptor_Unary_CachesVerifiedToken(t *testing.T) {
	signer := testSigner(t)
	i := NewInterceptor(signer)
	token, err := signer.Mint(TokenClaims{ClientIP: "5.6.7.8", ClientPubkey: "xyz", ExpiresAt: time.Now().Add(time.Minute).Unix()})
	require.NoError(t, err)

	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return nil, nil }
	_, err = i.Unary()(withBearer(token), nil, &grpc.UnaryServerInfo{FullMethod: "/relayer.Relayer/GetTpuConfigs"}, handler)
	require.NoError(t, err)
	require.Equal(t, 1, i.cache.Len())

	_, err = i.Unary()(withBearer(token), nil, &grpc.UnaryServerInfo{FullMethod: "/relayer.Relayer/GetTpuConfigs"}, handler)
	require.NoError(t, err)
	require.Equal(t, 1, i.cache.Len())
}
