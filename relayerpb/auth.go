package relayerpb

import (
	"context"

	"google.golang.org/grpc"
)

// ChallengeRequest is GenerateAuthChallenge's input.
type ChallengeRequest struct {
	Role   int32  `json:"role"`
	Pubkey []byte `json:"pubkey"`
}

// ChallengeResponse carries the issued challenge string.
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
}

// TokensRequest is GenerateAuthTokens's input.
type TokensRequest struct {
	Pubkey                  []byte `json:"pubkey"`
	ExpectedChallengeString string `json:"expected_challenge_string"`
	SignedChallenge         []byte `json:"signed_challenge"`
}

// TokensResponse carries both minted tokens and their absolute expiries.
type TokensResponse struct {
	AccessToken           string `json:"access_token"`
	AccessTokenExpiresAt  int64  `json:"access_token_expires_at"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresAt int64  `json:"refresh_token_expires_at"`
}

// RefreshRequest is RefreshAccessToken's input.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse carries the refreshed access token.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// AuthServer is implemented by the component backing the Auth RPC.
type AuthServer interface {
	GenerateAuthChallenge(context.Context, *ChallengeRequest) (*ChallengeResponse, error)
	GenerateAuthTokens(context.Context, *TokensRequest) (*TokensResponse, error)
	RefreshAccessToken(context.Context, *RefreshRequest) (*RefreshResponse, error)
}

// RegisterAuthServer attaches srv to s under the relayer.Auth service name.
func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&_Auth_serviceDesc, srv)
}

func _Auth_GenerateAuthChallenge_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ChallengeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServer).GenerateAuthChallenge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/relayer.Auth/GenerateAuthChallenge"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServer).GenerateAuthChallenge(ctx, req.(*ChallengeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Auth_GenerateAuthTokens_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TokensRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServer).GenerateAuthTokens(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/relayer.Auth/GenerateAuthTokens"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServer).GenerateAuthTokens(ctx, req.(*TokensRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Auth_RefreshAccessToken_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RefreshRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AuthServer).RefreshAccessToken(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/relayer.Auth/RefreshAccessToken"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AuthServer).RefreshAccessToken(ctx, req.(*RefreshRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// _Auth_serviceDesc is hand-built in place of protoc-gen-go-grpc output; see
// relayerpb's package doc for why there's no generated _grpc.pb.go here.
var _Auth_serviceDesc = grpc.ServiceDesc{
	ServiceName: "relayer.Auth",
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GenerateAuthChallenge", Handler: _Auth_GenerateAuthChallenge_Handler},
		{MethodName: "GenerateAuthTokens", Handler: _Auth_GenerateAuthTokens_Handler},
		{MethodName: "RefreshAccessToken", Handler: _Auth_RefreshAccessToken_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "relayerpb/auth.go",
}
