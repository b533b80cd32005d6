package handler

import (
	"context"
	"errors"
	"time"

	"github.com/MonkyMars/gecho"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/resto-orders/internal/core/domain"
	"github.com/rl1809/resto-orders/internal/core/service"
	"github.com/rl1809/resto-orders/internal/poll"
)

const orderServiceName = "resto.OrderService"

type GetOrderRequest struct {
	Code string `json:"code"`
}

// TransitionRequest leaves a field unchanged when it is nil.
type TransitionRequest struct {
	Code          string  `json:"code"`
	Status        *string `json:"status,omitempty"`
	PaymentStatus *string `json:"payment_status,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	Actor         string  `json:"actor"`
}

type ListOrdersRequest struct {
	Statuses      []string `json:"statuses,omitempty"`
	PaymentStatus string   `json:"payment_status,omitempty"`
	TableID       string   `json:"table_id,omitempty"`
	Sort          string   `json:"sort,omitempty"`
}

type OrderReply struct {
	Order   domain.Order `json:"order"`
	Urgency poll.Urgency `json:"urgency,omitempty"`
}

type ListOrdersReply struct {
	Orders []OrderReply `json:"orders"`
}

// OrderStationServer is the RPC surface used by cashier and kitchen stations.
type OrderStationServer interface {
	GetOrder(context.Context, *GetOrderRequest) (*OrderReply, error)
	ApplyTransition(context.Context, *TransitionRequest) (*OrderReply, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersReply, error)
}

type GRPCHandler struct {
	orderService *service.OrderService
	now          func() time.Time
}

func NewGRPCHandler(orderService *service.OrderService) *GRPCHandler {
	return &GRPCHandler{orderService: orderService, now: time.Now}
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderReply, error) {
	order, err := h.orderService.GetOrder(ctx, req.Code)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.reply(*order), nil
}

func (h *GRPCHandler) ApplyTransition(ctx context.Context, req *TransitionRequest) (*OrderReply, error) {
	t, err := buildTransition(req.Status, req.PaymentStatus, req.PaymentMethod, req.Actor)
	if err != nil {
		return nil, toStatus(err)
	}
	order, err := h.orderService.ApplyTransition(ctx, req.Code, t)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.reply(*order), nil
}

func (h *GRPCHandler) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersReply, error) {
	sort, err := parseSort(req.Sort)
	if err != nil {
		return nil, toStatus(err)
	}
	filter := domain.OrderFilter{TableID: req.TableID, Sort: sort}
	for _, raw := range req.Statuses {
		s, err := domain.ParseOrderStatus(raw)
		if err != nil {
			return nil, toStatus(err)
		}
		filter.Statuses = append(filter.Statuses, s)
	}
	if req.PaymentStatus != "" {
		p, err := domain.ParsePaymentStatus(req.PaymentStatus)
		if err != nil {
			return nil, toStatus(err)
		}
		filter.PaymentStatus = &p
	}

	orders, err := h.orderService.ListOrders(ctx, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &ListOrdersReply{Orders: make([]OrderReply, 0, len(orders))}
	for _, o := range orders {
		out.Orders = append(out.Orders, *h.reply(o))
	}
	return out, nil
}

func (h *GRPCHandler) reply(o domain.Order) *OrderReply {
	r := &OrderReply{Order: o}
	if !o.Status.IsTerminal() {
		r.Urgency = poll.ClassifyUrgency(o.CreatedAt, h.now())
	}
	return r
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrRepositoryConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, domain.ErrExhaustedCodeSpace):
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

// LoggingInterceptor logs every unary call with its outcome.
func LoggingInterceptor(logger *gecho.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if code == codes.Internal {
			logger.Error("gRPC call failed",
				gecho.Field("method", info.FullMethod),
				gecho.Field("error", err),
			)
		} else {
			logger.Debug("gRPC call",
				gecho.Field("method", info.FullMethod),
				gecho.Field("code", code.String()),
				gecho.Field("elapsed_ms", time.Since(start).Milliseconds()),
			)
		}
		return resp, err
	}
}

func RegisterOrderStationServer(s grpc.ServiceRegistrar, srv OrderStationServer) {
	s.RegisterService(&orderStationServiceDesc, srv)
}

var orderStationServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderStationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetOrder", Handler: getOrderHandler},
		{MethodName: "ApplyTransition", Handler: applyTransitionHandler},
		{MethodName: "ListOrders", Handler: listOrdersHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "resto/order_station",
}

func getOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderStationServer).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderServiceName + "/GetOrder"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderStationServer).GetOrder(ctx, req.(*GetOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func applyTransitionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(TransitionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderStationServer).ApplyTransition(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderServiceName + "/ApplyTransition"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderStationServer).ApplyTransition(ctx, req.(*TransitionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listOrdersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderStationServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + orderServiceName + "/ListOrders"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderStationServer).ListOrders(ctx, req.(*ListOrdersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// OrderStationClient calls the station RPCs with the JSON codec.
type OrderStationClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderStationClient(cc grpc.ClientConnInterface) *OrderStationClient {
	return &OrderStationClient{cc: cc}
}

func (c *OrderStationClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	if err := c.invoke(ctx, "GetOrder", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderStationClient) ApplyTransition(ctx context.Context, in *TransitionRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	if err := c.invoke(ctx, "ApplyTransition", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderStationClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersReply, error) {
	out := new(ListOrdersReply)
	if err := c.invoke(ctx, "ListOrders", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderStationClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+orderServiceName+"/"+method, in, out, opts...)
}
