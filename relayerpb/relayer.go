package relayerpb

import (
	"context"

	"google.golang.org/grpc"
)

// TpuConfigsRequest is GetTpuConfigs's (empty) input.
type TpuConfigsRequest struct{}

// TpuEndpoint is one ip/port pair.
type TpuEndpoint struct {
	IP   string `json:"ip"`
	Port int32  `json:"port"`
}

// TpuConfigsResponse is GetTpuConfigs's output: the transaction
// and transaction-forward endpoints for the caller to submit to.
type TpuConfigsResponse struct {
	Tpu        TpuEndpoint `json:"tpu"`
	TpuForward TpuEndpoint `json:"tpu_forward"`
}

// SubscribePacketsRequest is SubscribePackets's (empty) input; the caller's
// identity comes from the bearer token, not this message.
type SubscribePacketsRequest struct{}

// PacketMessage mirrors types.Packet on the wire.
type PacketMessage struct {
	Discard   bool   `json:"discard"`
	Forwarded bool   `json:"forwarded"`
	Payload   []byte `json:"payload"`
}

// SubscribeUpdate is one item of the SubscribePackets stream: either a batch
// of packets or a heartbeat.
type SubscribeUpdate struct {
	Heartbeat bool            `json:"heartbeat"`
	Packets   []PacketMessage `json:"packets,omitempty"`
}

// RelayerServer is implemented by the component backing the Relayer RPC
// (GetTpuConfigs + SubscribePackets).
type RelayerServer interface {
	GetTpuConfigs(context.Context, *TpuConfigsRequest) (*TpuConfigsResponse, error)
	SubscribePackets(*SubscribePacketsRequest, Relayer_SubscribePacketsServer) error
}

// Relayer_SubscribePacketsServer is the server-streaming handle passed to
// RelayerServer.SubscribePackets.
type Relayer_SubscribePacketsServer interface {
	Send(*SubscribeUpdate) error
	grpc.ServerStream
}

type relayerSubscribePacketsServer struct {
	grpc.ServerStream
}

func (x *relayerSubscribePacketsServer) Send(m *SubscribeUpdate) error {
	return x.ServerStream.SendMsg(m)
}

// RegisterRelayerServer attaches srv to s under the relayer.Relayer service name.
func RegisterRelayerServer(s grpc.ServiceRegistrar, srv RelayerServer) {
	s.RegisterService(&_Relayer_serviceDesc, srv)
}

func _Relayer_GetTpuConfigs_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(TpuConfigsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayerServer).GetTpuConfigs(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/relayer.Relayer/GetTpuConfigs"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RelayerServer).GetTpuConfigs(ctx, req.(*TpuConfigsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Relayer_SubscribePackets_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(SubscribePacketsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RelayerServer).SubscribePackets(m, &relayerSubscribePacketsServer{stream})
}

// _Relayer_serviceDesc is hand-built in place of protoc-gen-go-grpc output.
var _Relayer_serviceDesc = grpc.ServiceDesc{
	ServiceName: "relayer.Relayer",
	HandlerType: (*RelayerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTpuConfigs", Handler: _Relayer_GetTpuConfigs_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubscribePackets",
			Handler:       _Relayer_SubscribePackets_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "relayerpb/relayer.go",
}
