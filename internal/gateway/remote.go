package gateway

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/fulfillment/pkg/rpc"
)

// GRPCServiceName is the gRPC service that exposes a service type's operations.
func GRPCServiceName(serviceType ServiceType) string {
	switch serviceType {
	case ServiceInventory:
		return "fulfillment.v1.Inventory"
	case ServiceDirectory:
		return "fulfillment.v1.Directory"
	}
	return "fulfillment.v1." + string(serviceType)
}

// RemoteService forwards calls to a peer over gRPC with the JSON codec.
type RemoteService struct {
	conn    *grpc.ClientConn
	service string
}

// RemoteFactory dials addr when the gateway first needs serviceType.
// opts are appended after the insecure transport and JSON codec defaults.
func RemoteFactory(addr string, serviceType ServiceType, opts ...grpc.DialOption) Factory {
	return func() (Service, error) {
		dialOpts := append([]grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithDefaultCallOptions(grpc.ForceCodec(rpc.Codec{})),
		}, opts...)
		conn, err := grpc.NewClient(addr, dialOpts...)
		if err != nil {
			return nil, err
		}
		return &RemoteService{conn: conn, service: GRPCServiceName(serviceType)}, nil
	}
}

func (s *RemoteService) Call(ctx context.Context, op Operation, payload []byte) ([]byte, error) {
	var reply json.RawMessage
	if err := s.conn.Invoke(ctx, rpc.MethodName(s.service, string(op)), json.RawMessage(payload), &reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (s *RemoteService) Close() error {
	return s.conn.Close()
}
