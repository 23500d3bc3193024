package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/fulfillment/internal/core/domain"
	"github.com/rl1809/fulfillment/internal/core/service"
	"github.com/rl1809/fulfillment/internal/gateway"
	"github.com/rl1809/fulfillment/pkg/rpc"
)

const OrdersServiceName = "fulfillment.v1.Orders"

type OrderIDRequest struct {
	OrderID string `json:"order_id"`
}

type GRPCUpdateStatusRequest struct {
	OrderID string `json:"order_id"`
	UpdateStatusRequest
}

type GRPCCancelRequest struct {
	OrderID     string `json:"order_id"`
	CancelledBy string `json:"cancelled_by"`
}

// OrdersServer is the gRPC surface of the order service.
type OrdersServer interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)
	GetOrder(ctx context.Context, req *OrderIDRequest) (*OrderResponse, error)
	UpdateOrderStatus(ctx context.Context, req *GRPCUpdateStatusRequest) (*OrderResponse, error)
	CancelOrder(ctx context.Context, req *GRPCCancelRequest) (*OrderResponse, error)
	BulkUpdateOrders(ctx context.Context, req *BulkUpdateRequest) (*BulkUpdateResponse, error)
}

type GRPCHandler struct {
	orders OrderUseCase
	logger *zap.Logger
}

func NewGRPCHandler(orders OrderUseCase, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{orders: orders, logger: logger}
}

// NewGRPCServer returns a server that speaks the JSON codec.
func NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	return grpc.NewServer(append([]grpc.ServerOption{grpc.ForceServerCodec(rpc.Codec{})}, opts...)...)
}

func RegisterOrdersServer(s grpc.ServiceRegistrar, srv OrdersServer) {
	s.RegisterService(&ordersServiceDesc, srv)
}

func (h *GRPCHandler) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	result, err := h.orders.CreateOrder(ctx, req.command())
	if err != nil {
		return nil, h.statusError(err)
	}
	return &CreateOrderResponse{
		Order:        toOrderResponse(result.Order),
		Availability: toAvailability(result.Availability),
		ConsumerName: result.ConsumerName,
		FacilityName: result.FacilityName,
	}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *OrderIDRequest) (*OrderResponse, error) {
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "not a valid order id")
	}
	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (h *GRPCHandler) UpdateOrderStatus(ctx context.Context, req *GRPCUpdateStatusRequest) (*OrderResponse, error) {
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "not a valid order id")
	}

	cmd := service.UpdateOrderStatusCommand{OrderID: id, Notes: req.Notes, UpdatedBy: req.UpdatedBy}
	if req.Status != nil {
		s, ok := domain.ParseOrderStatus(*req.Status)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown status %s", *req.Status)
		}
		cmd.Status = &s
	}

	order, err := h.orders.UpdateOrderStatus(ctx, cmd)
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *GRPCCancelRequest) (*OrderResponse, error) {
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "not a valid order id")
	}
	order, err := h.orders.CancelOrder(ctx, id, req.CancelledBy)
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (h *GRPCHandler) BulkUpdateOrders(ctx context.Context, req *BulkUpdateRequest) (*BulkUpdateResponse, error) {
	result, err := h.orders.BulkUpdateOrders(ctx, req.command())
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := toBulkResponse(result)
	return &resp, nil
}

func (h *GRPCHandler) statusError(err error) error {
	std := toStandardError(err)
	code := grpcCode(std.HTTPStatus())
	if code == codes.Internal {
		h.logger.Error("grpc request failed", zap.Error(err))
	}
	return status.Error(code, std.Message)
}

func grpcCode(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.FailedPrecondition
	case http.StatusUnprocessableEntity:
		return codes.ResourceExhausted
	}
	return codes.Internal
}

func unaryHandler[Req, Resp any](method string, call func(OrdersServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			handler := func(ctx context.Context, r any) (any, error) {
				return call(srv.(OrdersServer), ctx, r.(*Req))
			}
			if interceptor == nil {
				return handler(ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.MethodName(OrdersServiceName, method)}
			return interceptor(ctx, req, info, handler)
		},
	}
}

var ordersServiceDesc = grpc.ServiceDesc{
	ServiceName: OrdersServiceName,
	HandlerType: (*OrdersServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateOrder", OrdersServer.CreateOrder),
		unaryHandler("GetOrder", OrdersServer.GetOrder),
		unaryHandler("UpdateOrderStatus", OrdersServer.UpdateOrderStatus),
		unaryHandler("CancelOrder", OrdersServer.CancelOrder),
		unaryHandler("BulkUpdateOrders", OrdersServer.BulkUpdateOrders),
	},
	Metadata: "fulfillment/v1/orders",
}

// RegisterGatewayService exposes svc under the gRPC name the gateway's
// RemoteFactory dials, so one process can serve another's gateway.
func RegisterGatewayService(s grpc.ServiceRegistrar, serviceType gateway.ServiceType, svc gateway.Service) {
	name := gateway.GRPCServiceName(serviceType)
	desc := grpc.ServiceDesc{
		ServiceName: name,
		HandlerType: (*gateway.Service)(nil),
		Metadata:    "fulfillment/v1/gateway",
	}
	for _, op := range gateway.Operations[serviceType] {
		desc.Methods = append(desc.Methods, gatewayMethod(name, op))
	}
	s.RegisterService(&desc, svc)
}

func gatewayMethod(serviceName string, op gateway.Operation) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: string(op),
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			var payload json.RawMessage
			if err := dec(&payload); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}
			handler := func(ctx context.Context, r any) (any, error) {
				reply, err := srv.(gateway.Service).Call(ctx, op, *r.(*json.RawMessage))
				if err != nil {
					return nil, gatewayStatus(err)
				}
				return json.RawMessage(reply), nil
			}
			if interceptor == nil {
				return handler(ctx, &payload)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.MethodName(serviceName, string(op))}
			return interceptor(ctx, &payload, info, handler)
		},
	}
}

func gatewayStatus(err error) error {
	switch {
	case errors.Is(err, gateway.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, gateway.ErrUnknownOperation):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrFacilityNotFound):
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

var _ OrdersServer = (*GRPCHandler)(nil)
