// Package rpc holds the gRPC plumbing shared by the servers and the gateway.
// Messages are plain JSON structs, so services are declared by hand instead
// of being generated from protobuf.
package rpc

import (
	"encoding/json"
	"fmt"
)

const CodecName = "json"

// Codec implements encoding.Codec with encoding/json.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return CodecName
}

// MethodName returns the full gRPC method path for service and method.
func MethodName(service, method string) string {
	return fmt.Sprintf("/%s/%s", service, method)
}
