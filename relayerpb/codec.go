// Package relayerpb defines the relayer's gRPC-facing message types and
// service descriptors. There is no .proto/protoc step in this tree; message
// structs are plain Go types and the wire codec below swaps gRPC's default
// "proto" codec for a JSON one so they can be marshaled without implementing
// the protobuf reflection interfaces by hand.
package relayerpb

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec registers under the name "proto" so it is picked up as gRPC's
// default codec without every caller needing to opt into a content-subtype.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "proto" }

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
