package grpcrpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// Codec carries messages as JSON (content-subtype "json") so the session procedures can be
// called without generated protobuf stubs.
type Codec struct{}

func init() {
	encoding.RegisterCodec(Codec{})
}

func (Codec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (Codec) Name() string { return "json" }
