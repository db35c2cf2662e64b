package auth

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is an unexported type for context values set by this package,
// so its keys never collide with another package's.
type contextKey int

const identityContextKey contextKey = 0

// bearerCacheSize bounds the recently-verified-token cache; grounded on
// beacon-chain/p2p/service.go's use of an LRU to avoid re-deriving
// frequently reused per-peer state.
const bearerCacheSize = 4096

// Interceptor validates the bearer token on every inbound request and
// attaches the caller's identity to the request context.
type Interceptor struct {
	signer *TokenSigner
	cache  *lru.Cache
}

// NewInterceptor wraps signer for per-request token verification.
func NewInterceptor(signer *TokenSigner) *Interceptor {
	cache, _ := lru.New(bearerCacheSize)
	return &Interceptor{signer: signer, cache: cache}
}

// Identity returned by a verified token.
type Identity struct {
	ClientIP string
	Pubkey   string
}

type cachedIdentity struct {
	identity  Identity
	expiresAt time.Time
}

// IdentityFromContext extracts the identity attached by the interceptor.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	return id, ok
}

// authServicePrefix is the relayer.Auth service's full-method prefix: its
// three RPCs are how a caller obtains a token in the first place, so they
// must stay reachable without one.
const authServicePrefix = "/relayer.Auth/"

// Unary returns a grpc.UnaryServerInterceptor that authenticates every call
// outside the relayer.Auth service.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, authServicePrefix) {
			return handler(ctx, req)
		}
		newCtx, err := i.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// Stream returns a grpc.StreamServerInterceptor that authenticates the
// initial call of every streaming RPC (e.g. SubscribePackets).
func (i *Interceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if strings.HasPrefix(info.FullMethod, authServicePrefix) {
			return handler(srv, ss)
		}
		newCtx, err := i.authenticate(ss.Context())
		if err != nil {
			return err
		}
		return handler(srv, &authenticatedStream{ServerStream: ss, ctx: newCtx})
	}
}

func (i *Interceptor) authenticate(ctx context.Context) (context.Context, error) {
	token, err := bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	if cached, ok := i.cache.Get(token); ok {
		entry := cached.(cachedIdentity)
		if time.Now().Before(entry.expiresAt) {
			return context.WithValue(ctx, identityContextKey, entry.identity), nil
		}
		i.cache.Remove(token)
	}

	claims, err := i.signer.Verify(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
	}
	id := Identity{ClientIP: claims.ClientIP, Pubkey: claims.ClientPubkey}
	i.cache.Add(token, cachedIdentity{identity: id, expiresAt: claims.ExpiresAtTime()})
	return context.WithValue(ctx, identityContextKey, id), nil
}

func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization header")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(values[0], prefix) {
		return "", status.Error(codes.Unauthenticated, "authorization header must be a bearer token")
	}
	return strings.TrimPrefix(values[0], prefix), nil
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *authenticatedStream) Context() context.Context { return a.ctx }
